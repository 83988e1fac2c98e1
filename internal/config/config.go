package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/localrivet/configurator"
)

// Config represents the NeuroGalaxy configuration
type Config struct {
	// Store contains note storage configuration.
	Store struct {
		// SQLitePath is the path to the SQLite database file holding the notes.
		SQLitePath string `json:"sqlite_path" env:"SQLITE_PATH" validate:"required"`
	} `json:"store"`

	// Embedder contains embedding-related configuration.
	Embedder struct {
		// Provider is "hashing" (local) or "openai" (OpenAI-compatible endpoint).
		Provider string `json:"provider" env:"EMBEDDER_PROVIDER"`

		// Dimensions is the number of dimensions for the embeddings.
		Dimensions int `json:"dimensions" env:"EMBEDDER_DIMENSIONS" validate:"min:1"`

		// Model is the remote embedding model name.
		Model string `json:"model" env:"EMBEDDER_MODEL"`

		// ApiKey is the API key for the embedding provider.
		ApiKey string `json:"api_key" env:"EMBEDDER_API_KEY"`

		// BaseURL overrides the endpoint of the embedding provider.
		BaseURL string `json:"base_url" env:"EMBEDDER_BASE_URL"`

		// MaxInputTokens bounds the tokens the local embedder reads per note.
		MaxInputTokens int `json:"max_input_tokens" env:"EMBEDDER_MAX_INPUT_TOKENS"`

		// MaxInputChars bounds the characters sent per note to a remote embedder.
		MaxInputChars int `json:"max_input_chars" env:"EMBEDDER_MAX_INPUT_CHARS"`

		// BatchSize is the number of notes per remote embedding request.
		BatchSize int `json:"batch_size" env:"EMBEDDER_BATCH_SIZE"`
	} `json:"embedder"`

	// Clusterer contains topic clustering configuration.
	Clusterer struct {
		// Clusters is the configured number of topics (k).
		Clusters int `json:"clusters" env:"CLUSTERER_CLUSTERS" validate:"min:1"`

		Seed    int64 `json:"seed" env:"CLUSTERER_SEED"`
		NInit   int   `json:"n_init" env:"CLUSTERER_N_INIT"`
		MaxIter int   `json:"max_iter" env:"CLUSTERER_MAX_ITER"`
	} `json:"clusterer"`

	// Projector contains 3D layout configuration.
	Projector struct {
		NNeighbors int     `json:"n_neighbors" env:"PROJECTOR_N_NEIGHBORS" validate:"min:1"`
		MinDist    float64 `json:"min_dist" env:"PROJECTOR_MIN_DIST"`
		Spread     float64 `json:"spread" env:"PROJECTOR_SPREAD"`
		NEpochs    int     `json:"n_epochs" env:"PROJECTOR_N_EPOCHS"`
		Seed       int64   `json:"seed" env:"PROJECTOR_SEED"`
	} `json:"projector"`

	// Namer contains cluster naming configuration.
	Namer struct {
		// Provider is the text-generation provider ("groq", "openai", "anthropic").
		Provider string `json:"provider" env:"NAMER_PROVIDER"`

		// Model is the model used to generate topic titles.
		Model string `json:"model" env:"NAMER_MODEL"`

		// ApiKey is the credential for the provider. When empty the provider's
		// own environment variable is consulted.
		ApiKey string `json:"api_key" env:"NAMER_API_KEY"`

		// BaseURL overrides the provider endpoint.
		BaseURL string `json:"base_url" env:"NAMER_BASE_URL"`

		Temperature float64       `json:"temperature" env:"NAMER_TEMPERATURE"`
		MaxTokens   int           `json:"max_tokens" env:"NAMER_MAX_TOKENS"`
		Concurrency int           `json:"concurrency" env:"NAMER_CONCURRENCY"`
		Timeout     time.Duration `json:"timeout" env:"NAMER_TIMEOUT"`
		Seed        int64         `json:"seed" env:"NAMER_SEED"`
	} `json:"namer"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Telemetry contains tracing configuration.
	Telemetry struct {
		TracingEnabled bool   `json:"tracing_enabled" env:"TRACING_ENABLED"`
		OTLPEndpoint   string `json:"otlp_endpoint" env:"OTLP_ENDPOINT"`
		ServiceName    string `json:"service_name" env:"SERVICE_NAME"`
	} `json:"telemetry"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename = ".neurogalaxyconfig"
	DefaultSQLitePath     = ".neurogalaxy.db"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultServiceName    = "neurogalaxy"

	DefaultEmbedderProvider = "hashing"
	DefaultDimensions       = 384
	DefaultMaxInputTokens   = 256
	DefaultMaxInputChars    = 8000
	DefaultEmbedBatchSize   = 32

	DefaultClusters = 5
	DefaultSeed     = 42
	DefaultNInit    = 10
	DefaultMaxIter  = 300

	DefaultNNeighbors = 10
	DefaultMinDist    = 0.3
	DefaultSpread     = 1.0

	DefaultNamerProvider    = "groq"
	DefaultNamerModel       = "llama-3.1-8b-instant"
	DefaultNamerTemperature = 0.7
	DefaultNamerMaxTokens   = 20
	DefaultNamerConcurrency = 4
	DefaultNamerTimeout     = 30 * time.Second
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Store.SQLitePath = DefaultSQLitePath

	config.Embedder.Provider = DefaultEmbedderProvider
	config.Embedder.Dimensions = DefaultDimensions
	config.Embedder.Model = "text-embedding-3-small"
	config.Embedder.MaxInputTokens = DefaultMaxInputTokens
	config.Embedder.MaxInputChars = DefaultMaxInputChars
	config.Embedder.BatchSize = DefaultEmbedBatchSize

	config.Clusterer.Clusters = DefaultClusters
	config.Clusterer.Seed = DefaultSeed
	config.Clusterer.NInit = DefaultNInit
	config.Clusterer.MaxIter = DefaultMaxIter

	config.Projector.NNeighbors = DefaultNNeighbors
	config.Projector.MinDist = DefaultMinDist
	config.Projector.Spread = DefaultSpread
	config.Projector.Seed = DefaultSeed

	config.Namer.Provider = DefaultNamerProvider
	config.Namer.Model = DefaultNamerModel
	config.Namer.Temperature = DefaultNamerTemperature
	config.Namer.MaxTokens = DefaultNamerMaxTokens
	config.Namer.Concurrency = DefaultNamerConcurrency
	config.Namer.Timeout = DefaultNamerTimeout
	config.Namer.Seed = DefaultSeed

	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat

	config.Telemetry.ServiceName = DefaultServiceName
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path.
// Configuration loading logs to stderr; stdout is reserved for the MCP transport.
func LoadConfigWithPath(configPath string) (*Config, error) {
	stdLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg := NewConfig()

	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			stdLogger.Debug("Found config file at " + foundPath)
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		stdLogger.Info("Config file not found, using default configuration", "path", configPath)
		cfg.configPath = configPath
		cfg.lastModifiedAt = time.Now()
		return cfg, nil
	}

	loader := configurator.New(stdLogger).
		WithProvider(configurator.NewDefaultProvider()).
		WithProvider(configurator.NewFileProvider(configPath)).
		WithProvider(configurator.NewEnvProvider("NEUROGALAXY")).
		WithValidator(configurator.NewDefaultValidator())

	if err := loader.Load(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}
