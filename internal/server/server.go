// Package server exposes the pipeline service over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/service/index"
)

// VideoService is the subset of pipeline.Service the handlers need
type VideoService interface {
	Process(ctx context.Context, videoID string) (*model.RunResult, error)
	Query(ctx context.Context, videoID, query string, k int) (*model.QueryResult, error)
	Status(ctx context.Context, videoID string) (*model.PipelineRecord, error)
	List(ctx context.Context) ([]*model.PipelineRecord, error)
	Delete(ctx context.Context, videoID string) error
}

// Options configures the listener
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	DefaultK        int
}

// Server serves the HTTP API
type Server struct {
	svc    VideoService
	opts   Options
	logger *slog.Logger
}

// New creates a new Server
func New(svc VideoService, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	if opts.DefaultK <= 0 {
		opts.DefaultK = index.DefaultK
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	return &Server{svc: svc, opts: opts, logger: logger}
}

// Handler returns the routed handler with CORS and request logging applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /process-video", s.handleProcess)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /videos", s.handleList)
	mux.HandleFunc("GET /videos/{id}", s.handleStatus)
	mux.HandleFunc("DELETE /videos/{id}", s.handleDelete)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(enableCORS(mux))
}

// Run listens until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
