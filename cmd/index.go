package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Vector index operations",
}

// indexBuildCmd re-embeds the persisted chunks of a video
var indexBuildCmd = &cobra.Command{
	Use:   "build [VIDEO_ID|URL]",
	Short: "Rebuild a video's index from its chunk files",
	Long: `Embed the chunk files already written for a video and replace its index.
Use this after changing the embedding model; the transcript is not fetched again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.pipeline.Reindex(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}

		cmd.Printf("Indexed %d chunk(s) with %s (%d dimensions)\n",
			result.Manifest.Count, result.Manifest.EmbeddingModel, result.Manifest.Dimension)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexBuildCmd)
}
