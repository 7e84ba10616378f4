package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/collegebuddy/internal/index"
	"github.com/kailas-cloud/collegebuddy/internal/metrics"
	chiTransport "github.com/kailas-cloud/collegebuddy/internal/transport/chi"
	answeruc "github.com/kailas-cloud/collegebuddy/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/collegebuddy/internal/usecase/health"
	"github.com/kailas-cloud/collegebuddy/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, building the index first if it is missing",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	logger, cfg := rt.logger, rt.cfg
	defer func() { _ = logger.Sync() }()

	if err := cfg.ValidateProvider(); err != nil {
		logger.Error("Invalid provider configuration", zap.Error(err))
		return err
	}

	logger.Info("Starting collegebuddy API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", rt.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("provider", cfg.Provider.Name),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_model", cfg.Generation.Model),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := index.NewStore(cfg.Index.Dir)
	prov := buildProviders(cfg, logger)

	// Startup gate: reuse the persisted index or build it from the corpus.
	if _, err := newIngestService(cfg, store, prov.documents, logger).EnsureIndex(ctx); err != nil {
		logger.Error("Failed to prepare index", zap.Error(err))
		return fmt.Errorf("prepare index: %w", err)
	}

	answerSvc := answeruc.New(store, prov.questions, prov.generator, logger).
		WithTimeout(time.Duration(cfg.Generation.TimeoutSec) * time.Second).
		WithTopK(cfg.Generation.TopK).
		WithTemperature(*cfg.Generation.Temperature).
		WithPersona(cfg.Generation.Persona)
	healthSvc := healthuc.New(store, prov.base)

	server := chiTransport.NewServer(answerSvc, healthSvc, logger).
		WithFrontend(cfg.Frontend.DistDir).
		WithAPIKeys(cfg.HTTP.APIKeys).
		WithCORSOrigins(cfg.HTTP.CORSOrigins)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("HTTP server error", zap.Error(err))
		return err
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
