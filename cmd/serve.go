package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicwire/videoscan/internal/api"
	queuememory "github.com/civicwire/videoscan/internal/queue/memory"
	"github.com/civicwire/videoscan/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scanner as an HTTP service",
		Long: `Serves scan triggering (POST /v1/scans), scan job status, the
scan-state API consumed by one-shot scanners, health, and Prometheus
metrics. Triggered scans are queued and executed by a single worker so
concurrent triggers cannot race on the checkpoint.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comp, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build discovery stack: %w", err)
	}
	defer comp.close()

	queue := queuememory.NewQueue(cfg.Server.QueueDepth)
	defer queue.Close()
	jobs := worker.NewJobStore()

	w := worker.New(queue, jobs, comp.orchestrator, comp.publisher, comp.clock,
		worker.Config{Topic: comp.topic}, logger)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.Run(ctx)
	}()

	// The served /scan-state is backed by the local file store directly:
	// this instance is the remote primary for its callers.
	server := api.NewServer(queue, jobs, comp.fileStore, comp.clock, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown failed", zap.Error(err))
		}
	}
	<-workerDone
	return nil
}
