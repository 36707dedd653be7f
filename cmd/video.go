package cmd

import (
	"context"

	"github.com/Taichi-iskw/yt-rag/cmd/video"
)

func init() {
	rootCmd.AddCommand(video.NewVideoCommand(func(ctx context.Context) (video.Registry, func(), error) {
		a, err := setup(ctx)
		if err != nil {
			return nil, nil, err
		}
		return a.service, a.Close, nil
	}))
}
