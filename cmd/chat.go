package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/chat"
	"github.com/clearsight-analytics/churn-cli/pkg/anthropic"
)

var chatShowSQL bool

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask questions about the customer data",
	Long: `Answers natural-language questions by generating SQL against the SQLite
warehouse and narrating the results via Claude. With a question argument it
answers once and exits; without one it starts an interactive session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Anthropic.Key == "" {
			return eris.New("chat: anthropic key is required (CHURN_ANTHROPIC_KEY)")
		}

		mirror, err := openMirror(nil)
		if err != nil {
			return err
		}
		defer mirror.Close() //nolint:errcheck

		pipeline := chat.NewPipeline(
			anthropic.NewClient(cfg.Anthropic.Key),
			mirror.DB(),
			chat.Options{
				Model:     cfg.Anthropic.Model,
				MaxTokens: cfg.Anthropic.MaxTokens,
			},
		)

		if len(args) == 1 {
			return askOnce(cmd, pipeline, args[0])
		}

		fmt.Println("Ask about your customers (empty line to quit).")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				break
			}
			if err := askOnce(cmd, pipeline, question); err != nil {
				zap.L().Error("question failed", zap.Error(err))
			}
		}
		return scanner.Err()
	},
}

func askOnce(cmd *cobra.Command, pipeline *chat.Pipeline, question string) error {
	answer, err := pipeline.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	if chatShowSQL {
		fmt.Printf("[%s]\n%s\n\n", answer.Category, answer.SQL)
	}
	fmt.Println(answer.Reply)
	return nil
}

func init() {
	chatCmd.Flags().BoolVar(&chatShowSQL, "show-sql", false, "print the generated SQL before the answer")
	rootCmd.AddCommand(chatCmd)
}
