package domain

import "errors"

var (
	// ErrIndexNotFound signals that no built vector index is available.
	ErrIndexNotFound = errors.New("vector index not found")
	// ErrNoDocuments signals that the corpus produced nothing to index.
	ErrNoDocuments = errors.New("no documents to index")
	// ErrQueryTimeout signals that answering did not finish within its deadline.
	ErrQueryTimeout = errors.New("query timed out")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrEmptyCompletion signals a provider response without any generated text.
	ErrEmptyCompletion = errors.New("empty completion")
)
