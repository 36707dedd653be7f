package cmd

import (
	"context"

	"github.com/Taichi-iskw/yt-rag/cmd/rag"
)

func init() {
	rootCmd.AddCommand(rag.NewProcessCommand(func(ctx context.Context) (rag.Processor, func(), error) {
		a, err := setup(ctx)
		if err != nil {
			return nil, nil, err
		}
		return a.service, a.Close, nil
	}))

	// query reads the index directly, so it works with the in-memory registry
	// after an earlier process run
	rootCmd.AddCommand(rag.NewQueryCommand(func(ctx context.Context) (rag.Querier, func(), error) {
		a, err := setup(ctx)
		if err != nil {
			return nil, nil, err
		}
		return a.pipeline, a.Close, nil
	}))
}
