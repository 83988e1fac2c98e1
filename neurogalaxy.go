// Package neurogalaxy lays a collection of short text notes out as a labelled
// 3D galaxy: notes are embedded, grouped into topics, projected into space and
// each topic is given a short title.
package neurogalaxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/localrivet/neurogalaxy/internal/cluster"
	"github.com/localrivet/neurogalaxy/internal/config"
	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/localrivet/neurogalaxy/internal/logger"
	"github.com/localrivet/neurogalaxy/internal/namer"
	"github.com/localrivet/neurogalaxy/internal/namer/providers"
	"github.com/localrivet/neurogalaxy/internal/notestore"
	"github.com/localrivet/neurogalaxy/internal/pipeline"
	"github.com/localrivet/neurogalaxy/internal/projection"
	"github.com/localrivet/neurogalaxy/internal/server"
	"github.com/localrivet/neurogalaxy/internal/telemetry"
	"github.com/localrivet/neurogalaxy/internal/vector"
)

// Config represents the configuration for the neurogalaxy service.
type Config = config.Config

// Galaxy is the result of processing a note collection.
type Galaxy = pipeline.Galaxy

// Node is one note placed in the galaxy.
type Node = pipeline.Node

// HealthReport summarises naming and pipeline health.
type HealthReport = namer.HealthReport

// Embedder providers
const (
	EmbedderHashing = "hashing"
	EmbedderOpenAI  = "openai"
)

const tracingShutdownTimeout = 5 * time.Second

// Components are the wired parts of the service.
type Components struct {
	Store    notestore.NoteStore
	Embedder vector.Embedder
	Namer    *namer.Namer
	Pipeline *pipeline.Pipeline
	Metrics  *telemetry.MetricsCollector
}

// AddResult is returned by AddNotes.
type AddResult struct {
	Message    string  `json:"message" yaml:"message"`
	TotalCount int     `json:"total_count" yaml:"total_count"`
	Galaxy     *Galaxy `json:"galaxy" yaml:"galaxy"`
}

// Server represents the neurogalaxy service.
type Server struct {
	config          *config.Config
	components      *Components
	toolServer      server.GalaxyToolServer
	shutdownTracing func(context.Context) error
	logger          *slog.Logger
}

// ServerOptions defines the options for creating a new Server.
type ServerOptions struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Used if Config is nil. If both are empty, DefaultConfig() is used.
	Logger     *slog.Logger // External logger. If nil, one is built from the logging config.
}

// NewServer creates a new neurogalaxy Server with the given options.
func NewServer(opts ServerOptions) (*Server, error) {
	var cfg *Config
	var err error

	switch {
	case opts.Config != nil:
		cfg = opts.Config
	case opts.ConfigPath != "":
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath)
		if err != nil {
			return nil, errortypes.ConfigError(err, "failed to load configuration from path: "+opts.ConfigPath)
		}
	default:
		cfg = DefaultConfig()
	}

	log := opts.Logger
	if log == nil {
		log = logger.FromSettings(cfg.Logging.Level, cfg.Logging.Format)
	}

	shutdown, err := telemetry.InitTracing(context.Background(), telemetry.TracingConfig{
		Enabled:     cfg.Telemetry.TracingEnabled,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return nil, errortypes.ConfigError(err, "failed to initialize tracing")
	}

	components, err := CreateComponents(cfg, log)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}

	toolServer := server.NewGalaxyToolServer(components.Store, components.Pipeline, func() (string, error) {
		return namer.CreateHealthReportJSON(components.Namer)
	}, logger.Component(log, "server"))
	if err := toolServer.Initialize(); err != nil {
		_ = components.Store.Close()
		_ = shutdown(context.Background())
		return nil, errortypes.ConfigError(err, "failed to initialize MCP galaxy tool server")
	}

	log.Info("neurogalaxy server successfully initialized",
		"embedder", cfg.Embedder.Provider,
		"namer", components.Namer.ProviderName(),
		"namer_available", components.Namer.Available())

	return &Server{
		config:          cfg,
		components:      components,
		toolServer:      toolServer,
		shutdownTracing: shutdown,
		logger:          log,
	}, nil
}

// DefaultConfig returns the default configuration for the neurogalaxy service.
func DefaultConfig() *Config {
	return config.NewConfig()
}

// CreateComponents creates and initializes the store and the pipeline stages
// without creating a server instance.
func CreateComponents(cfg *Config, log *slog.Logger) (*Components, error) {
	if cfg == nil {
		return nil, errortypes.ConfigError(errors.New("nil config"), "cannot create components")
	}
	if log == nil {
		log = slog.Default()
	}

	log.Info("Initializing SQLite note store", "path", cfg.Store.SQLitePath)
	store := notestore.NewSQLiteNoteStore()
	if err := store.Initialize(cfg.Store.SQLitePath); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg, logger.Component(log, "embedder"))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	metrics := telemetry.NewMetricsCollector()

	clusterer := cluster.New(cluster.Config{
		K:       cfg.Clusterer.Clusters,
		Seed:    cfg.Clusterer.Seed,
		NInit:   cfg.Clusterer.NInit,
		MaxIter: cfg.Clusterer.MaxIter,
	}, logger.Component(log, "clusterer"))

	projector := projection.New(projection.Config{
		NNeighbors: cfg.Projector.NNeighbors,
		MinDist:    cfg.Projector.MinDist,
		Spread:     cfg.Projector.Spread,
		NEpochs:    cfg.Projector.NEpochs,
		Seed:       cfg.Projector.Seed,
	}, logger.Component(log, "projector"))

	nm := namer.New(namer.Config{
		Provider:    cfg.Namer.Provider,
		Model:       cfg.Namer.Model,
		APIKey:      cfg.Namer.ApiKey,
		BaseURL:     cfg.Namer.BaseURL,
		Temperature: cfg.Namer.Temperature,
		MaxTokens:   cfg.Namer.MaxTokens,
		Concurrency: cfg.Namer.Concurrency,
		Timeout:     cfg.Namer.Timeout,
		Seed:        cfg.Namer.Seed,
	}, metrics, logger.Component(log, "namer"))

	p, err := pipeline.New(pipeline.Components{
		Embedder:  embedder,
		Clusterer: clusterer,
		Projector: projector,
		Namer:     nm,
	}, metrics, logger.Component(log, "pipeline"))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	log.Info("Components successfully initialized")
	return &Components{
		Store:    store,
		Embedder: embedder,
		Namer:    nm,
		Pipeline: p,
		Metrics:  metrics,
	}, nil
}

func newEmbedder(cfg *Config, log *slog.Logger) (vector.Embedder, error) {
	var emb vector.Embedder

	switch cfg.Embedder.Provider {
	case EmbedderHashing, "":
		emb = vector.NewHashingEmbedder(cfg.Embedder.Dimensions, cfg.Embedder.MaxInputTokens)
	case EmbedderOpenAI:
		remote, err := vector.NewOpenAIEmbedder(vector.OpenAIEmbedderConfig{
			APIKey:        providers.ResolveAPIKey(providers.ProviderOpenAI, cfg.Embedder.ApiKey),
			Model:         cfg.Embedder.Model,
			BaseURL:       cfg.Embedder.BaseURL,
			Dimensions:    cfg.Embedder.Dimensions,
			BatchSize:     cfg.Embedder.BatchSize,
			MaxInputChars: cfg.Embedder.MaxInputChars,
			Logger:        log,
		})
		if err != nil {
			return nil, err
		}
		emb = remote
	default:
		return nil, errortypes.ConfigError(fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider),
			"cannot create embedder")
	}

	if err := emb.Initialize(); err != nil {
		return nil, errortypes.EmbeddingError(err, "failed to initialize embedder")
	}
	log.Info("Embedder initialized", "provider", cfg.Embedder.Provider, "dimensions", emb.Dimensions())
	return emb, nil
}

// Start serves the MCP tools over stdio. It blocks until stdin closes.
func (s *Server) Start() error {
	s.logger.Info("Starting neurogalaxy service")
	return s.toolServer.Start()
}

// Stop stops the neurogalaxy service, closes the store and flushes traces.
func (s *Server) Stop() error {
	s.logger.Info("Stopping neurogalaxy service")

	var errs []error
	if err := s.toolServer.Stop(); err != nil {
		s.logger.Error("Error stopping tool server", "error", err)
		errs = append(errs, err)
	}
	if err := s.components.Store.Close(); err != nil {
		s.logger.Error("Failed to close store", "error", err)
		errs = append(errs, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
	defer cancel()
	if err := s.shutdownTracing(ctx); err != nil {
		s.logger.Warn("Failed to flush traces", "error", err)
	}

	return errors.Join(errs...)
}

// Process lays out notes without storing them.
func (s *Server) Process(ctx context.Context, notes []string) (*Galaxy, error) {
	return s.components.Pipeline.Process(ctx, notes)
}

// AddNotes appends notes to the store and recomputes the galaxy over the
// whole stored collection.
func (s *Server) AddNotes(ctx context.Context, notes []string) (*AddResult, error) {
	total, err := s.components.Store.Append(notes)
	if err != nil {
		return nil, err
	}
	all, err := s.components.Store.List()
	if err != nil {
		return nil, err
	}
	galaxy, err := s.components.Pipeline.Process(ctx, all)
	if err != nil {
		return nil, err
	}
	return &AddResult{
		Message:    fmt.Sprintf("Added %d note(s)", len(notes)),
		TotalCount: total,
		Galaxy:     galaxy,
	}, nil
}

// Nodes lays out every stored note. An empty store yields an empty galaxy.
func (s *Server) Nodes(ctx context.Context) (*Galaxy, error) {
	notes, err := s.components.Store.List()
	if err != nil {
		return nil, err
	}
	return s.components.Pipeline.Process(ctx, notes)
}

// ClearNotes removes every stored note and returns how many were removed.
func (s *Server) ClearNotes() (int, error) {
	return s.components.Store.Clear()
}

// Health reports naming availability and pipeline timings.
func (s *Server) Health() (*HealthReport, error) {
	return namer.CreateHealthReport(s.components.Namer)
}

// GetConfig returns the configuration the server was built with.
func (s *Server) GetConfig() *Config {
	return s.config
}

// GetStore returns the note store used by the server.
func (s *Server) GetStore() notestore.NoteStore {
	return s.components.Store
}

// GetPipeline returns the pipeline used by the server.
func (s *Server) GetPipeline() *pipeline.Pipeline {
	return s.components.Pipeline
}
