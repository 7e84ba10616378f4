package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
	"github.com/kailas-cloud/collegebuddy/internal/index"
	"github.com/kailas-cloud/collegebuddy/internal/metrics"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the vector index from the data directory",
	Long: `ingest loads every .txt and .pdf file from the data directory, splits it
into chunks, embeds them and replaces the persisted index in one pass.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	logger, cfg := rt.logger, rt.cfg
	defer func() { _ = logger.Sync() }()

	if err := cfg.ValidateProvider(); err != nil {
		return err
	}

	metrics.Register()

	store := index.NewStore(cfg.Index.Dir)
	prov := buildProviders(cfg, logger)

	report, err := newIngestService(cfg, store, prov.documents, logger).Build(cmd.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoDocuments) {
			cmd.PrintErrf("No documents loaded. Put .txt or .pdf files in %s\n", cfg.Corpus.DataDir)
		}
		logger.Error("Ingestion failed", zap.Error(err))
		return fmt.Errorf("ingest: %w", err)
	}

	cmd.Printf("Indexed %d chunks from %d documents into %s (%d dimensions, %s)\n",
		report.Chunks, report.Documents, store.Dir(), report.Dimensions, report.Duration.Round(time.Millisecond))
	return nil
}
