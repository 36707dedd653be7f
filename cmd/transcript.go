package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/service/chunker"
	"github.com/Taichi-iskw/yt-rag/internal/service/transcript"
)

// transcriptCmd represents the transcript command
var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Transcript operations",
	Long:  `Fetch a video transcript as WebVTT or split an existing VTT file into chunks.`,
}

// transcriptFetchCmd fetches a transcript into the video directory
var transcriptFetchCmd = &cobra.Command{
	Use:   "fetch [VIDEO_ID|URL]",
	Short: "Fetch a transcript and write it as WebVTT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		videoID, err := model.ParseVideoID(args[0])
		if err != nil {
			return err
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("out")
		if dir == "" {
			dir = cfg.VideoDir(videoID)
		}

		svc := transcript.NewTranscriptService(newProvider(cfg, retryConfig(cfg), logger), cfg.Transcript.Languages, logger)
		tr, err := svc.Generate(ctx, videoID, dir)
		if err != nil {
			return fmt.Errorf("failed to fetch transcript: %w", err)
		}

		cmd.Printf("Wrote %d caption(s) from %s to %s\n", len(tr.Entries), tr.Provider, tr.Path)
		return nil
	},
}

// transcriptChunkCmd splits a VTT file into chunk files
var transcriptChunkCmd = &cobra.Command{
	Use:   "chunk [VTT_FILE]",
	Short: "Split a WebVTT transcript into time-bounded chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		outDir, _ := cmd.Flags().GetString("out")
		duration := cfg.Chunking.DurationSeconds
		if cmd.Flags().Changed("duration") {
			duration, _ = cmd.Flags().GetFloat64("duration")
		}
		strict := cfg.Chunking.Strict
		if cmd.Flags().Changed("strict") {
			strict, _ = cmd.Flags().GetBool("strict")
		}
		if duration <= 0 {
			return fmt.Errorf("duration must be positive, got %v", duration)
		}

		svc := chunker.NewChunkerService(duration, strict, logger)
		result, err := svc.ChunkFile(context.Background(), args[0], outDir)
		if err != nil {
			return fmt.Errorf("failed to chunk transcript: %w", err)
		}

		cmd.Printf("Created %d chunk(s) from %d segment(s) in %s\n", len(result.Chunks), result.SegmentCount, outDir)
		for _, issue := range result.Skipped {
			cmd.Printf("Skipped line %d: %s\n", issue.Line, issue.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
	transcriptCmd.AddCommand(transcriptFetchCmd)
	transcriptCmd.AddCommand(transcriptChunkCmd)

	transcriptFetchCmd.Flags().String("out", "", "Output directory (default <data_dir>/<video_id>)")

	transcriptChunkCmd.Flags().String("out", "chunks", "Output directory for chunk files")
	transcriptChunkCmd.Flags().Float64("duration", 30, "Chunk duration threshold in seconds")
	transcriptChunkCmd.Flags().Bool("strict", false, "Fail on the first malformed cue instead of skipping it")
}
