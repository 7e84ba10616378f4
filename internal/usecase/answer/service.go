package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
	"github.com/kailas-cloud/collegebuddy/internal/logger"
	"github.com/kailas-cloud/collegebuddy/internal/metrics"
)

// Defaults for answering.
const (
	DefaultTopK        = 3
	DefaultTemperature = float32(0.2)
	DefaultTimeout     = 30 * time.Second
)

// Answer outcomes recorded in metrics.
const (
	outcomeOK           = "ok"
	outcomeIndexMissing = "index_missing"
	outcomeTimeout      = "timeout"
	outcomeError        = "error"
)

// Service answers questions from the indexed corpus.
type Service struct {
	index       Retriever
	embedder    domain.Embedder
	generator   domain.Generator
	topK        int
	temperature float32
	timeout     time.Duration
	persona     string
	logger      *zap.Logger
}

// New creates an answer service with the default k, temperature, timeout and persona.
func New(idx Retriever, embedder domain.Embedder, generator domain.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:       idx,
		embedder:    embedder,
		generator:   generator,
		topK:        DefaultTopK,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
		persona:     DefaultPersona,
		logger:      logger,
	}
}

// WithTimeout sets the deadline covering retrieval and generation.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithTopK sets how many chunks are retrieved.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// WithTemperature sets the sampling temperature.
func (s *Service) WithTemperature(t float32) *Service {
	s.temperature = t
	return s
}

// WithPersona replaces the system persona. Blank keeps the default.
func (s *Service) WithPersona(p string) *Service {
	if p != "" {
		s.persona = p
	}
	return s
}

type result struct {
	answer domain.Answer
	err    error
}

// Answer retrieves the nearest chunks for q and asks the generator to answer from them.
//
// Errors: domain.ErrIndexNotFound when no index is built, domain.ErrQueryTimeout
// when the deadline passes first, otherwise the wrapped provider error.
// The pipeline runs on its own goroutine; on timeout its context is cancelled
// and the result is discarded.
func (s *Service) Answer(ctx context.Context, q domain.Query) (domain.Answer, error) {
	log := logger.FromContext(ctx, s.logger)

	if !s.index.Exists() {
		metrics.AnswersTotal.WithLabelValues(outcomeIndexMissing).Inc()
		return domain.Answer{}, domain.ErrIndexNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan result, 1)
	go func() {
		a, err := s.run(ctx, q)
		done <- result{answer: a, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = result{err: ctx.Err()}
	}

	if r.err != nil {
		err := s.classify(r.err)
		log.Warn("Answer failed",
			zap.Duration("duration", time.Since(start)),
			zap.String("mood", q.Mood),
			zap.Error(err),
		)
		return domain.Answer{}, err
	}

	metrics.AnswersTotal.WithLabelValues(outcomeOK).Inc()
	log.Info("Answer generated",
		zap.Duration("duration", time.Since(start)),
		zap.String("mood", q.Mood),
		zap.Int("sources", len(r.answer.Sources)),
	)
	return r.answer, nil
}

func (s *Service) classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		metrics.AnswersTotal.WithLabelValues(outcomeIndexMissing).Inc()
		return domain.ErrIndexNotFound
	case errors.Is(err, context.DeadlineExceeded):
		metrics.AnswersTotal.WithLabelValues(outcomeTimeout).Inc()
		return fmt.Errorf("after %s: %w", s.timeout, domain.ErrQueryTimeout)
	default:
		metrics.AnswersTotal.WithLabelValues(outcomeError).Inc()
		return err
	}
}

func (s *Service) run(ctx context.Context, q domain.Query) (domain.Answer, error) {
	emb, err := s.embedder.Embed(ctx, q.Question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.index.Search(ctx, emb.Embedding, s.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	res, err := s.generator.Complete(ctx, domain.CompletionRequest{
		Messages:    BuildPrompt(s.persona, q.Mood, q.Question, hits),
		Temperature: s.temperature,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate: %w", err)
	}

	return domain.Answer{Text: res.Text, Sources: hits}, nil
}
