package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
	"github.com/kailas-cloud/collegebuddy/internal/metrics"
)

// Report summarizes an index build.
type Report struct {
	Documents  int
	Chunks     int
	Dimensions int
	Tokens     int
	Duration   time.Duration
}

// Service builds the vector index from the data directory.
type Service struct {
	loader   DocumentLoader
	splitter Splitter
	embedder domain.Embedder
	index    IndexWriter
	dataDir  string
	model    string
	logger   *zap.Logger
}

// New creates an ingest service. model is recorded in the index metadata.
func New(
	loader DocumentLoader, splitter Splitter, embedder domain.Embedder,
	idx IndexWriter, dataDir, model string, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		index:    idx,
		dataDir:  dataDir,
		model:    model,
		logger:   logger,
	}
}

// Build loads, chunks and embeds the corpus, then replaces the index in one pass.
// An empty corpus returns domain.ErrNoDocuments and leaves any existing index untouched.
// Embedding failures abort before anything is persisted.
func (s *Service) Build(ctx context.Context) (Report, error) {
	start := time.Now()

	docs, err := s.loader.Load(ctx, s.dataDir)
	if err != nil {
		return Report{}, fmt.Errorf("load corpus: %w", err)
	}
	if len(docs) == 0 {
		return Report{}, fmt.Errorf("%s: %w", s.dataDir, domain.ErrNoDocuments)
	}

	chunks := s.splitter.Split(docs)
	if len(chunks) == 0 {
		return Report{}, fmt.Errorf("%s: no text extracted: %w", s.dataDir, domain.ErrNoDocuments)
	}

	s.logger.Info("Embedding corpus",
		zap.String("data_dir", s.dataDir),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
	)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	res, err := domain.EmbedAll(ctx, s.embedder, texts)
	if err != nil {
		return Report{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(res.Embeddings) != len(chunks) {
		return Report{}, fmt.Errorf("got %d vectors for %d chunks: %w",
			len(res.Embeddings), len(chunks), domain.ErrEmbeddingProviderError)
	}

	meta, err := s.index.Replace(ctx, s.model, chunks, res.Embeddings)
	if err != nil {
		return Report{}, fmt.Errorf("persist index: %w", err)
	}

	report := Report{
		Documents:  len(docs),
		Chunks:     meta.Chunks,
		Dimensions: meta.Dimensions,
		Tokens:     res.TotalTokens,
		Duration:   time.Since(start),
	}

	metrics.IndexChunks.Set(float64(report.Chunks))
	metrics.IndexBuildDuration.Set(report.Duration.Seconds())

	s.logger.Info("Index built",
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks),
		zap.Int("dimensions", report.Dimensions),
		zap.Int("tokens", report.Tokens),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

// EnsureIndex reuses an existing index or builds one. It reports whether a build ran.
// An empty corpus is logged and leaves the service without an index.
func (s *Service) EnsureIndex(ctx context.Context) (bool, error) {
	if s.index.Exists() {
		s.logger.Info("Reusing existing index")
		return false, nil
	}

	s.logger.Info("No index found, building from corpus", zap.String("data_dir", s.dataDir))

	if _, err := s.Build(ctx); err != nil {
		if errors.Is(err, domain.ErrNoDocuments) {
			s.logger.Warn("No documents to index; queries will report a missing index",
				zap.String("data_dir", s.dataDir))
			return false, nil
		}
		return false, err
	}
	return true, nil
}
