// Package video holds the commands that inspect and remove processed videos.
package video

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// Registry is the subset of the pipeline service used by the video commands
type Registry interface {
	Status(ctx context.Context, videoID string) (*model.PipelineRecord, error)
	List(ctx context.Context) ([]*model.PipelineRecord, error)
	Delete(ctx context.Context, videoID string) error
}

// RegistryFactory builds a Registry and returns a cleanup func
type RegistryFactory func(ctx context.Context) (Registry, func(), error)

// NewVideoCommand creates the video command
func NewVideoCommand(factory RegistryFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Inspect and delete processed videos",
		Long:  `Show pipeline status, list processed videos and delete a video's index and files.`,
	}

	cmd.AddCommand(NewStatusCommand(factory))
	cmd.AddCommand(NewListCommand(factory))
	cmd.AddCommand(NewDeleteCommand(factory))
	return cmd
}

// NewStatusCommand creates the status command
func NewStatusCommand(factory RegistryFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [VIDEO_ID|URL]",
		Short: "Show the pipeline status of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, factory, func(ctx context.Context, registry Registry, formatter Formatter) error {
				rec, err := registry.Status(ctx, args[0])
				if err != nil {
					return err
				}
				output, err := formatter.FormatRecord(rec)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), output)
				return nil
			})
		},
	}
	cmd.Flags().String("format", "text", "Output format (text, json)")
	return cmd
}

// NewListCommand creates the list command
func NewListCommand(factory RegistryFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(cmd, factory, func(ctx context.Context, registry Registry, formatter Formatter) error {
				records, err := registry.List(ctx)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					cmd.Println("No videos found.")
					return nil
				}
				output, err := formatter.FormatList(records)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), output)
				return nil
			})
		},
	}
	cmd.Flags().String("format", "text", "Output format (text, json)")
	return cmd
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand(factory RegistryFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [VIDEO_ID|URL]",
		Short: "Delete a video's index, files and status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if dryRun {
				cmd.Println("DRY RUN: Would delete video", args[0])
				return nil
			}
			return withRegistry(cmd, factory, func(ctx context.Context, registry Registry, _ Formatter) error {
				if err := registry.Delete(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to delete video: %w", err)
				}
				cmd.Printf("Video %s deleted\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().Bool("dry-run", false, "Show what would be deleted without deleting")
	return cmd
}

func withRegistry(cmd *cobra.Command, factory RegistryFactory, fn func(ctx context.Context, registry Registry, formatter Formatter) error) error {
	format := "text"
	if cmd.Flags().Lookup("format") != nil {
		format, _ = cmd.Flags().GetString("format")
	}
	formatter, err := GetFormatter(format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	registry, cleanup, err := factory(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, registry, formatter)
}
