package rag

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewProcessCommand creates the process command
func NewProcessCommand(factory ProcessorFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [VIDEO_ID|URL]",
		Short: "Fetch, chunk and index a video",
		Long:  `Fetch a video's transcript, split it into chunks and build its vector index.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			formatter, err := GetRunFormatter(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			processor, cleanup, err := factory(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			cmd.Printf("Processing %s...\n", args[0])
			result, err := processor.Process(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to process video: %w", err)
			}

			output, err := formatter.Format(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().String("format", "text", "Output format (text, json)")
	return cmd
}
