package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultTemperature float32 = 0.2

// Config holds the collegebuddy configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Provider   ProviderConfig   `yaml:"provider"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Index      IndexConfig      `yaml:"index"`
	Frontend   FrontendConfig   `yaml:"frontend"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
	APIKeys         []string `yaml:"api_keys"` // empty disables auth on /api
}

// ProviderConfig holds the OpenAI-compatible provider used for embeddings and generation.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"` // 0 = model default
	BatchSize           int    `yaml:"batch_size"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"` // nil = 0.2; an explicit 0 is kept
	TimeoutSec  int      `yaml:"timeout_sec"`
	TopK        int      `yaml:"top_k"`
	Persona     string   `yaml:"persona"` // empty = built-in senior student persona
}

// CorpusConfig holds the location of the source documents.
type CorpusConfig struct {
	DataDir string `yaml:"data_dir"`
}

// IndexConfig holds the location of the persisted vector index.
type IndexConfig struct {
	Dir string `yaml:"dir"`
}

// FrontendConfig holds the prebuilt frontend bundle location.
type FrontendConfig struct {
	DistDir string `yaml:"dist_dir"` // empty disables static serving
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration for an environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded into the process environment first.
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(path string) (Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML after ${VAR} substitution, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"*"}
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "cohere"
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://api.cohere.ai/compatibility/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "embed-english-light-v3.0"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 96
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "command-r"
	}
	if c.Generation.Temperature == nil {
		t := defaultTemperature
		c.Generation.Temperature = &t
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 30
	}
	if c.Generation.TopK <= 0 {
		c.Generation.TopK = 3
	}
	// Writes must outlive the generation deadline or timeouts never reach the client.
	if c.HTTP.WriteTimeoutSec <= c.Generation.TimeoutSec {
		c.HTTP.WriteTimeoutSec = c.Generation.TimeoutSec + 15
	}
	if c.Corpus.DataDir == "" {
		c.Corpus.DataDir = "data"
	}
	if c.Index.Dir == "" {
		c.Index.Dir = "vector_index"
	}
}

// Validate checks the configuration for correctness.
// The provider credential is checked separately by ValidateProvider,
// since offline commands run without one.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if t := c.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %g", *t)
	}
	if filepath.Clean(c.Corpus.DataDir) == filepath.Clean(c.Index.Dir) {
		return fmt.Errorf("index.dir must differ from corpus.data_dir")
	}
	return nil
}

// ValidateProvider checks that the embedding/generation provider is usable.
func (c *Config) ValidateProvider() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required (set COHERE_API_KEY in the environment or .env)")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
