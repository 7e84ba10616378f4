package ingest

import (
	"context"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
	"github.com/kailas-cloud/collegebuddy/internal/index"
)

// DocumentLoader reads the corpus.
type DocumentLoader interface {
	Load(ctx context.Context, dir string) ([]domain.Document, error)
}

// Splitter cuts documents into chunks.
type Splitter interface {
	Split(docs []domain.Document) []domain.Chunk
}

// IndexWriter persists a complete build.
type IndexWriter interface {
	Exists() bool
	Replace(ctx context.Context, model string, chunks []domain.Chunk, vectors [][]float32) (index.Meta, error)
}
