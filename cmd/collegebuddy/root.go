package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/collegebuddy/internal/chunker"
	"github.com/kailas-cloud/collegebuddy/internal/config"
	"github.com/kailas-cloud/collegebuddy/internal/domain"
	"github.com/kailas-cloud/collegebuddy/internal/index"
	"github.com/kailas-cloud/collegebuddy/internal/loader"
	logpkg "github.com/kailas-cloud/collegebuddy/internal/logger"
	openaiTransport "github.com/kailas-cloud/collegebuddy/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/collegebuddy/internal/usecase/embedding"
	ingestuc "github.com/kailas-cloud/collegebuddy/internal/usecase/ingest"
)

var (
	envFlag    string
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:   "collegebuddy",
	Short: "Retrieval-augmented Q&A backend for the College Buddy chatbot",
	Long: `collegebuddy answers student questions from a small document corpus.

Without a subcommand it starts the HTTP server (same as "collegebuddy serve").`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "environment name, selects config/<env>.yaml (default $ENV or local)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "explicit path to a YAML config file")
}

// app is the configuration and logger shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
}

func loadRuntime() (*app, error) {
	env := envFlag
	if env == "" {
		env = config.GetEnv()
	}

	var (
		cfg config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFile(configFlag)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(loggerEnv(env), cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &app{env: env, cfg: cfg, logger: logger}, nil
}

// loggerEnv maps arbitrary environment names onto the logger presets.
func loggerEnv(env string) string {
	switch env {
	case "prod", "local", "dev", "docker":
		return env
	default:
		return "dev"
	}
}

// providers holds the remote embedding and generation clients.
type providers struct {
	base      *openaiTransport.Embedder
	documents domain.Embedder
	questions domain.Embedder
	generator *openaiTransport.Generator
}

// buildProviders assembles the embedder chain, OpenAI -> Instrumented -> Instruction,
// and the chat generator.
func buildProviders(cfg config.Config, logger *zap.Logger) providers {
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	instrumented := embeddinguc.NewInstrumentedEmbedder(base, cfg.Embedding.Model, cfg.Embedding.BatchSize, logger)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Generation.Model,
		Logger:  logger,
	})

	return providers{
		base:      base,
		documents: domain.NewInstructionEmbedder(instrumented, cfg.Embedding.DocumentInstruction),
		questions: domain.NewInstructionEmbedder(instrumented, cfg.Embedding.QueryInstruction),
		generator: generator,
	}
}

func newIngestService(cfg config.Config, store *index.Store, embedder domain.Embedder, logger *zap.Logger) *ingestuc.Service {
	return ingestuc.New(
		loader.Default(logger),
		chunker.New(),
		embedder,
		store,
		cfg.Corpus.DataDir,
		cfg.Embedding.Model,
		logger,
	)
}
