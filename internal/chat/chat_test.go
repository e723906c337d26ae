package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearsight-analytics/churn-cli/internal/warehouse"
	"github.com/clearsight-analytics/churn-cli/pkg/anthropic"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	replies  []string
	requests []anthropic.MessageRequest
}

func (c *scriptedClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	c.requests = append(c.requests, req)
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: reply}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func newChatMirror(t *testing.T) *warehouse.Mirror {
	t.Helper()
	m, err := warehouse.NewMirror(filepath.Join(t.TempDir(), "mirror.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	require.NoError(t, m.Migrate(context.Background()))

	now := time.Now().UTC()
	for i, churned := range []bool{true, false, false, true} {
		id := []string{"Q-1", "Q-2", "Q-3", "Q-4"}[i]
		_, err := m.DB().Exec("INSERT INTO customer_churn VALUES (?, ?, NULL, ?, ?)",
			id, churned, now, now)
		require.NoError(t, err)
	}
	return m
}

func TestPipeline_Ask(t *testing.T) {
	m := newChatMirror(t)
	client := &scriptedClient{replies: []string{
		"CHURN_ANALYSIS",
		"```sql\nSELECT COUNT(*) AS churned FROM customer_churn WHERE churn_status = 1\n```",
		"2 of your 4 customers have churned.",
	}}

	p := NewPipeline(client, m.DB(), Options{Model: "claude-sonnet-4-5-20250929"})
	answer, err := p.Ask(context.Background(), "How many customers churned?")
	require.NoError(t, err)

	assert.Equal(t, CategoryChurnAnalysis, answer.Category)
	assert.Equal(t, "SELECT COUNT(*) AS churned FROM customer_churn WHERE churn_status = 1 LIMIT 100", answer.SQL)
	assert.Equal(t, []string{"churned"}, answer.Columns)
	require.Len(t, answer.Rows, 1)
	assert.Equal(t, "2", answer.Rows[0][0])
	assert.Equal(t, "2 of your 4 customers have churned.", answer.Reply)
	// Three calls, 15 tokens each.
	assert.Equal(t, int64(30), answer.Usage.InputTokens)

	// The SQL generator gets the cached schema prompt; the narration sees
	// the rendered results.
	require.Len(t, client.requests, 3)
	assert.NotNil(t, client.requests[1].System[0].CacheControl)
	assert.Contains(t, client.requests[2].Messages[0].Content, "churned")
}

func TestPipeline_AskUnknownCategoryFallsBack(t *testing.T) {
	m := newChatMirror(t)
	client := &scriptedClient{replies: []string{
		"SOMETHING_ELSE",
		"SELECT COUNT(*) FROM customer_churn",
		"There are 4 customers.",
	}}

	answer, err := NewPipeline(client, m.DB(), Options{Model: "m"}).
		Ask(context.Background(), "what do you know?")
	require.NoError(t, err)
	assert.Equal(t, CategoryOther, answer.Category)
}

func TestPipeline_AskRejectsMutatingSQL(t *testing.T) {
	m := newChatMirror(t)
	client := &scriptedClient{replies: []string{
		"CHURN_ANALYSIS",
		"DELETE FROM customer_churn",
	}}

	_, err := NewPipeline(client, m.DB(), Options{Model: "m"}).
		Ask(context.Background(), "delete everything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")

	// Nothing was deleted.
	var count int
	require.NoError(t, m.DB().QueryRow("SELECT COUNT(*) FROM customer_churn").Scan(&count))
	assert.Equal(t, 4, count)
}

func TestPipeline_AskEmptyQuestion(t *testing.T) {
	m := newChatMirror(t)
	_, err := NewPipeline(&scriptedClient{}, m.DB(), Options{}).Ask(context.Background(), "  ")
	require.Error(t, err)
}

func TestRenderResults(t *testing.T) {
	out := renderResults([]string{"a", "b"}, [][]string{{"1", "2"}})
	assert.Equal(t, "a | b\n1 | 2\n", out)
	assert.Equal(t, "(no rows)", renderResults([]string{"a"}, nil))
}
