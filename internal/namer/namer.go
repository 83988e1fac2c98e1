// Package namer gives each topic cluster a short human-readable title by
// asking a text-generation provider about a few of its notes.
package namer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/localrivet/neurogalaxy/internal/namer/providers"
	"github.com/localrivet/neurogalaxy/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const (
	// SampleSize is the maximum number of notes shown to the provider per cluster.
	SampleSize = 3

	DefaultConcurrency = 4
	DefaultSeed        = 42
)

// Config holds the namer settings.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Concurrency int
	Timeout     time.Duration
	Seed        int64
}

// Namer names clusters. Whether a provider is available is decided once at
// construction; an unavailable namer answers every cluster with its placeholder.
type Namer struct {
	generator   providers.TextGenerator
	concurrency int
	timeout     time.Duration
	seed        int64
	metrics     *telemetry.MetricsCollector
	logger      *slog.Logger
}

// New builds a namer from configuration. Missing credentials or an unknown
// provider leave the namer unavailable rather than failing.
func New(cfg Config, metrics *telemetry.MetricsCollector, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Provider
	if name == "" {
		name = providers.ProviderGroq
	}

	factory := providers.NewProviderFactory(map[string]providers.Config{
		name: {
			APIKey:      providers.ResolveAPIKey(name, cfg.APIKey),
			ModelID:     cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: &cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	})

	generator, err := factory.GetProvider(name)
	if err != nil {
		logger.Info("Cluster naming unavailable, using placeholder names", "provider", name, "reason", err.Error())
		generator = nil
	}
	return NewWithGenerator(generator, cfg, metrics, logger)
}

// NewWithGenerator builds a namer around an existing generator. A nil
// generator yields an unavailable namer.
func NewWithGenerator(generator providers.TextGenerator, cfg Config, metrics *telemetry.MetricsCollector, logger *slog.Logger) *Namer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = providers.DefaultTimeout
	}
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}
	if logger == nil {
		logger = slog.Default()
	}

	available := 0.0
	if generator != nil {
		available = 1
	}
	metrics.SetGauge(telemetry.MetricNamerAvailable, available)

	return &Namer{
		generator:   generator,
		concurrency: cfg.Concurrency,
		timeout:     cfg.Timeout,
		seed:        cfg.Seed,
		metrics:     metrics,
		logger:      logger,
	}
}

// Available reports whether a text-generation provider is configured.
func (n *Namer) Available() bool {
	return n.generator != nil
}

// ProviderName returns the configured provider, or "" when unavailable.
func (n *Namer) ProviderName() string {
	if n.generator == nil {
		return ""
	}
	return n.generator.Name()
}

// GetMetrics returns the metrics collector for this namer
func (n *Namer) GetMetrics() *telemetry.MetricsCollector {
	return n.metrics
}

// Name returns one title per distinct cluster id in labels. notes[i] belongs
// to cluster labels[i]. It never fails: any cluster whose provider call fails
// gets its placeholder and the others are unaffected.
func (n *Namer) Name(ctx context.Context, notes []string, labels []int) map[int]string {
	members := make(map[int][]string)
	for i, label := range labels {
		if i >= len(notes) {
			break
		}
		members[label] = append(members[label], notes[i])
	}

	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	names := make(map[int]string, len(ids))
	if n.generator == nil {
		for _, id := range ids {
			names[id] = Placeholder(id)
		}
		n.metrics.IncrementCounter(telemetry.MetricNamerFallbacks, int64(len(ids)))
		return names
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(n.concurrency)

	for _, id := range ids {
		texts := members[id]
		g.Go(func() error {
			title, err := n.nameCluster(ctx, id, texts)
			if err != nil {
				errortypes.LogError(n.logger, errortypes.ExternalServiceError(err, "cluster naming failed").
					WithField("cluster", id).
					WithField("provider", n.generator.Name()))
				n.metrics.IncrementCounter(telemetry.MetricNamerFallbacks, 1)
				title = Placeholder(id)
			}
			mu.Lock()
			names[id] = title
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return names
}

// nameCluster makes one provider call for a cluster.
func (n *Namer) nameCluster(ctx context.Context, id int, texts []string) (string, error) {
	prompt := BuildPrompt(Sample(texts, n.seed, id))

	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	n.metrics.IncrementCounter(telemetry.MetricNamerCalls, 1)
	start := time.Now()
	raw, err := n.generator.Generate(callCtx, prompt)
	n.metrics.Since(telemetry.MetricNamerResponseTime, start)
	if err != nil {
		n.metrics.IncrementCounter(telemetry.MetricNamerFailure, 1)
		return "", err
	}

	title, ok := ParseTitle(raw)
	if !ok {
		n.metrics.IncrementCounter(telemetry.MetricNamerFailure, 1)
		return "", errors.New("provider returned no usable title")
	}
	n.metrics.IncrementCounter(telemetry.MetricNamerSuccess, 1)
	n.logger.Debug("Named cluster", "cluster", id, "title", title, "samples", min(len(texts), SampleSize))
	return title, nil
}

// Placeholder is the name used when a cluster cannot be named.
func Placeholder(id int) string {
	return fmt.Sprintf("Category %d", id)
}

// Sample picks up to SampleSize texts uniformly without replacement. The
// choice is fixed by seed and cluster id; small clusters are used whole.
func Sample(texts []string, seed int64, clusterID int) []string {
	if len(texts) <= SampleSize {
		return slices.Clone(texts)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(clusterID)))
	out := make([]string, 0, SampleSize)
	for _, i := range rng.Perm(len(texts))[:SampleSize] {
		out = append(out, texts[i])
	}
	return out
}

// BuildPrompt formats the naming request for a set of sample notes.
func BuildPrompt(samples []string) string {
	var b strings.Builder
	b.WriteString("Generate a 2-word topic title for these notes:\n")
	for _, s := range samples {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn ONLY the 2-word title.")
	return b.String()
}

// ParseTitle extracts a title from a raw completion: the first two
// whitespace-separated tokens of the first non-blank line. A single token is
// used alone; no tokens is a failure.
func ParseTitle(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	first, _, _ := strings.Cut(trimmed, "\n")
	tokens := strings.Fields(first)
	if len(tokens) == 0 {
		return "", false
	}
	return strings.Join(tokens[:min(2, len(tokens))], " "), true
}
