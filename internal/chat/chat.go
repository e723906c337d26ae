package chat

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/pkg/anthropic"
)

// Options configures the chat pipeline.
type Options struct {
	Model     string
	MaxTokens int64
}

// Answer is the full result of one question.
type Answer struct {
	Question string
	Category string
	SQL      string
	Columns  []string
	Rows     [][]string
	Reply    string
	Usage    anthropic.TokenUsage
}

// Pipeline runs classify, SQL generation, guarded execution against the
// mirror, and narration.
type Pipeline struct {
	client anthropic.Client
	db     *sql.DB
	opts   Options
	log    *zap.Logger
}

func NewPipeline(client anthropic.Client, db *sql.DB, opts Options) *Pipeline {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &Pipeline{
		client: client,
		db:     db,
		opts:   opts,
		log:    zap.L().With(zap.String("component", "chat")),
	}
}

// Ask answers one natural-language question about the customer base.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, eris.New("chat: empty question")
	}
	answer := &Answer{Question: question}

	category, usage, err := p.classify(ctx, question)
	if err != nil {
		return nil, err
	}
	answer.Category = category
	answer.Usage = answer.Usage.Add(usage)
	p.log.Info("question classified",
		zap.String("category", category), zap.String("question", question))

	query, usage, err := p.generateSQL(ctx, question)
	if err != nil {
		return nil, err
	}
	answer.Usage = answer.Usage.Add(usage)

	guarded, err := GuardSQL(query)
	if err != nil {
		return nil, err
	}
	answer.SQL = guarded
	p.log.Info("query generated", zap.String("sql", guarded))

	answer.Columns, answer.Rows, err = p.execute(ctx, guarded)
	if err != nil {
		return nil, err
	}

	reply, usage, err := p.narrate(ctx, question, guarded, renderResults(answer.Columns, answer.Rows))
	if err != nil {
		return nil, err
	}
	answer.Reply = reply
	answer.Usage = answer.Usage.Add(usage)
	answer.Usage.LogCost(p.opts.Model, "chat")
	return answer, nil
}

func (p *Pipeline) classify(ctx context.Context, question string) (string, anthropic.TokenUsage, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.opts.Model,
		MaxTokens: 16,
		System:    []anthropic.SystemBlock{{Text: classifySystemPrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: question}},
	})
	if err != nil {
		return "", anthropic.TokenUsage{}, eris.Wrap(err, "chat: classify question")
	}
	category := strings.ToUpper(strings.TrimSpace(resp.Text()))
	if !knownCategories[category] {
		category = CategoryOther
	}
	return category, resp.Usage, nil
}

func (p *Pipeline) generateSQL(ctx context.Context, question string) (string, anthropic.TokenUsage, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.opts.Model,
		MaxTokens: p.opts.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(schemaPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: question}},
	})
	if err != nil {
		return "", anthropic.TokenUsage{}, eris.Wrap(err, "chat: generate sql")
	}
	return resp.Text(), resp.Usage, nil
}

func (p *Pipeline) narrate(ctx context.Context, question, query, results string) (string, anthropic.TokenUsage, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.opts.Model,
		MaxTokens: p.opts.MaxTokens,
		System:    []anthropic.SystemBlock{{Text: narrateSystemPrompt}},
		Messages: []anthropic.Message{
			{Role: "user", Content: narratePrompt(question, query, results)},
		},
	})
	if err != nil {
		return "", anthropic.TokenUsage{}, eris.Wrap(err, "chat: narrate results")
	}
	return strings.TrimSpace(resp.Text()), resp.Usage, nil
}

func (p *Pipeline) execute(ctx context.Context, query string) ([]string, [][]string, error) {
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, eris.Wrap(err, "chat: execute query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, eris.Wrap(err, "chat: read columns")
	}

	var out [][]string
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, eris.Wrap(err, "chat: scan row")
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		out = append(out, row)
	}
	return columns, out, eris.Wrap(rows.Err(), "chat: iterate rows")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}

// renderResults flattens rows into the pipe-separated text the narration
// prompt receives.
func renderResults(columns []string, rows [][]string) string {
	if len(rows) == 0 {
		return "(no rows)"
	}
	var b strings.Builder
	b.WriteString(strings.Join(columns, " | "))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	return b.String()
}
