package rag

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/service/index"
)

// NewQueryCommand creates the query command. Without a question it reads
// questions from stdin until exit or quit.
func NewQueryCommand(factory QuerierFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [VIDEO_ID|URL] [QUESTION]",
		Short: "Ask a question about a processed video",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, _ := cmd.Flags().GetInt("k")
			format, _ := cmd.Flags().GetString("format")
			formatter, err := GetAnswerFormatter(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			querier, cleanup, err := factory(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			videoID := args[0]
			if len(args) == 2 {
				return ask(ctx, cmd, querier, formatter, videoID, args[1], k)
			}
			return interactive(ctx, cmd, querier, formatter, videoID, k)
		},
	}

	cmd.Flags().IntP("k", "k", index.DefaultK, "Number of transcript chunks to retrieve")
	cmd.Flags().String("format", "text", "Output format (text, json)")
	return cmd
}

func ask(ctx context.Context, cmd *cobra.Command, querier Querier, formatter AnswerFormatter, videoID, question string, k int) error {
	result, err := querier.Query(ctx, videoID, question, k)
	if err != nil {
		return err
	}
	output, err := formatter.Format(result)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

func interactive(ctx context.Context, cmd *cobra.Command, querier Querier, formatter AnswerFormatter, videoID string, k int) error {
	cmd.Println("Type 'exit' or 'quit' to leave")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("\nYour question: ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			continue
		case "exit", "quit":
			cmd.Println("Exiting...")
			return nil
		}

		if err := ask(ctx, cmd, querier, formatter, videoID, question, k); err != nil {
			if ctx.Err() != nil {
				return err
			}
			cmd.Printf("\nError: %s\n", errors.MessageOf(err))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read question: %w", err)
	}
	cmd.Println()
	return nil
}
