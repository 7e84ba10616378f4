package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
	"github.com/kailas-cloud/collegebuddy/internal/metrics"
)

// Generator answers chat prompts through the OpenAI-compatible chat completions API.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

var _ domain.Generator = (*Generator)(nil)

// NewGenerator creates a chat completion client.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		model:  cfg.Model,
		logger: logger,
	}
}

// Complete sends the prompt and returns the first choice's text.
func (g *Generator) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: requestTemperature(req.Temperature),
	})
	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(metrics.OpGenerate, g.model, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			metrics.ProviderErrorsTotal.WithLabelValues(metrics.OpGenerate, g.model, "cancelled").Inc()
			return domain.CompletionResult{}, fmt.Errorf("chat completion: %w", ctxErr)
		}
		metrics.ProviderErrorsTotal.WithLabelValues(metrics.OpGenerate, g.model, "api_error").Inc()
		return domain.CompletionResult{}, parseAPIError("generation", err, domain.ErrGenerationProviderError)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.ProviderRequestsTotal.WithLabelValues(metrics.OpGenerate, g.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues(metrics.OpGenerate, g.model, "empty_response").Inc()
		return domain.CompletionResult{}, fmt.Errorf("chat completion: %w", domain.ErrEmptyCompletion)
	}

	metrics.ProviderRequestsTotal.WithLabelValues(metrics.OpGenerate, g.model, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(metrics.OpGenerate, g.model).Observe(duration.Seconds())
	metrics.ProviderTokensTotal.WithLabelValues(metrics.OpGenerate, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ProviderTokensTotal.WithLabelValues(metrics.OpGenerate, g.model, "completion").
		Add(float64(resp.Usage.CompletionTokens))

	g.logger.Debug("Chat completion finished",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return domain.CompletionResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// requestTemperature maps 0 to the smallest positive float32: go-openai omits a zero
// temperature from the request body and the provider would apply its own default.
func requestTemperature(t float32) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
