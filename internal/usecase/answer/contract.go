package answer

import (
	"context"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
)

// Retriever finds the chunks nearest to a question vector.
type Retriever interface {
	Exists() bool
	Search(ctx context.Context, vec []float32, k int) ([]domain.ScoredChunk, error)
}
