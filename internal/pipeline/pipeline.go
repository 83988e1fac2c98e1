// Package pipeline turns a note collection into a labelled 3D galaxy:
// embed, then cluster and project concurrently, then name the clusters.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/localrivet/neurogalaxy/internal/cluster"
	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/localrivet/neurogalaxy/internal/namer"
	"github.com/localrivet/neurogalaxy/internal/projection"
	"github.com/localrivet/neurogalaxy/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Embedder converts notes to vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Clusterer assigns each vector a cluster id.
type Clusterer interface {
	Cluster(ctx context.Context, vectors [][]float32) (*cluster.Result, error)
}

// Projector places each vector in 3D.
type Projector interface {
	Project(ctx context.Context, vectors [][]float32) (*projection.Result, error)
}

// Namer titles clusters. It never fails.
type Namer interface {
	Name(ctx context.Context, notes []string, labels []int) map[int]string
}

// Components are the stages a Pipeline runs.
type Components struct {
	Embedder  Embedder
	Clusterer Clusterer
	Projector Projector
	Namer     Namer
}

// Pipeline orchestrates the stages. It holds no per-run state, so one
// Pipeline may serve concurrent Process calls.
type Pipeline struct {
	components Components
	metrics    *telemetry.MetricsCollector
	logger     *slog.Logger
}

// New creates a Pipeline. Every component is required.
func New(components Components, metrics *telemetry.MetricsCollector, logger *slog.Logger) (*Pipeline, error) {
	if components.Embedder == nil || components.Clusterer == nil ||
		components.Projector == nil || components.Namer == nil {
		return nil, errortypes.ConfigError(errors.New("missing component"), "pipeline requires embedder, clusterer, projector and namer")
	}
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		components: components,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// GetMetrics returns the metrics collector for this pipeline
func (p *Pipeline) GetMetrics() *telemetry.MetricsCollector {
	return p.metrics
}

// Process builds the galaxy for notes. An empty collection returns an empty
// galaxy without running any stage. Embedding, clustering and projection
// failures abort the run; naming failures only degrade cluster titles.
func (p *Pipeline) Process(ctx context.Context, notes []string) (_ *Galaxy, err error) {
	if len(notes) == 0 {
		return EmptyGalaxy(), nil
	}

	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	n := len(notes)

	ctx, span := telemetry.StartSpan(ctx, "pipeline.process",
		attribute.String("run_id", runID),
		attribute.Int("notes", n))
	start := time.Now()
	p.metrics.IncrementCounter(telemetry.MetricRuns, 1)
	defer func() {
		p.metrics.Since(telemetry.MetricTotalTime, start)
		if err != nil {
			p.metrics.IncrementCounter(telemetry.MetricFailures, 1)
			var appErr *errortypes.AppError
			if errors.As(err, &appErr) {
				appErr.WithField("run_id", runID)
			}
			errortypes.LogError(logger, err)
		}
		telemetry.EndSpan(span, err)
	}()

	logger.Info("Processing notes", "notes", n)

	vectors, err := p.embed(ctx, notes)
	if err != nil {
		return nil, err
	}

	var clusters *cluster.Result
	var layout *projection.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var cerr error
		clusters, cerr = p.cluster(gctx, vectors)
		return cerr
	})
	g.Go(func() error {
		var perr error
		layout, perr = p.project(gctx, vectors)
		return perr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := p.name(ctx, notes, clusters.Labels)

	galaxy := assemble(notes, clusters.Labels, layout.Coords, names)

	p.metrics.SetGauge(telemetry.MetricLastNoteCount, float64(n))
	p.metrics.SetGauge(telemetry.MetricLastClusterCount, float64(clusters.EffectiveK))
	p.metrics.RecordTimestamp(telemetry.MetricLastRun)

	logger.Info("Processed notes",
		"notes", n,
		"clusters", len(galaxy.ClusterNames),
		"duration", time.Since(start))
	return galaxy, nil
}

func (p *Pipeline) embed(ctx context.Context, notes []string) (_ [][]float32, err error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.embed")
	defer func() { telemetry.EndSpan(span, err) }()
	defer p.metrics.Since(telemetry.MetricEmbedTime, time.Now())

	vectors, err := p.components.Embedder.Embed(ctx, notes)
	if err != nil {
		return nil, stageError(errortypes.ErrorTypeEmbedding, err)
	}
	if len(vectors) != len(notes) {
		return nil, errortypes.EmbeddingError(
			fmt.Errorf("got %d vectors for %d notes", len(vectors), len(notes)),
			"embedding stage returned the wrong number of vectors")
	}
	return vectors, nil
}

func (p *Pipeline) cluster(ctx context.Context, vectors [][]float32) (_ *cluster.Result, err error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.cluster")
	defer func() { telemetry.EndSpan(span, err) }()
	defer p.metrics.Since(telemetry.MetricClusterTime, time.Now())

	res, err := p.components.Clusterer.Cluster(ctx, vectors)
	if err != nil {
		return nil, stageError(errortypes.ErrorTypeClustering, err)
	}
	if res == nil || len(res.Labels) != len(vectors) {
		got := 0
		if res != nil {
			got = len(res.Labels)
		}
		return nil, errortypes.ClusteringError(
			fmt.Errorf("got %d labels for %d vectors", got, len(vectors)),
			"clustering stage returned the wrong number of labels")
	}
	for i, l := range res.Labels {
		if l < 0 {
			return nil, errortypes.ClusteringError(
				fmt.Errorf("negative label %d at %d", l, i), "clustering stage returned an invalid label")
		}
	}
	span.SetAttributes(attribute.Int("clusters", res.EffectiveK))
	return res, nil
}

func (p *Pipeline) project(ctx context.Context, vectors [][]float32) (_ *projection.Result, err error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.project")
	defer func() { telemetry.EndSpan(span, err) }()
	defer p.metrics.Since(telemetry.MetricProjectTime, time.Now())

	res, err := p.components.Projector.Project(ctx, vectors)
	if err != nil {
		return nil, stageError(errortypes.ErrorTypeProjection, err)
	}
	if res == nil || len(res.Coords) != len(vectors) {
		got := 0
		if res != nil {
			got = len(res.Coords)
		}
		return nil, errortypes.ProjectionError(
			fmt.Errorf("got %d points for %d vectors", got, len(vectors)),
			"projection stage returned the wrong number of points")
	}
	for i, c := range res.Coords {
		for _, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errortypes.ProjectionError(
					fmt.Errorf("non-finite coordinate at %d", i), "projection stage returned an invalid point")
			}
		}
	}
	return res, nil
}

func (p *Pipeline) name(ctx context.Context, notes []string, labels []int) map[int]string {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.name")
	defer span.End()
	defer p.metrics.Since(telemetry.MetricNameTime, time.Now())

	return p.components.Namer.Name(ctx, notes, labels)
}

// assemble builds nodes in input order. ClusterNames keeps every title the
// namer returned and gains a placeholder for any category it left out.
func assemble(notes []string, labels []int, coords [][projection.Components]float64, names map[int]string) *Galaxy {
	galaxy := &Galaxy{
		Nodes:        make([]Node, len(notes)),
		ClusterNames: make(map[int]string, len(names)),
	}
	for category, title := range names {
		if title == "" {
			title = namer.Placeholder(category)
		}
		galaxy.ClusterNames[category] = title
	}
	for i, note := range notes {
		category := labels[i]
		title, ok := galaxy.ClusterNames[category]
		if !ok {
			title = namer.Placeholder(category)
			galaxy.ClusterNames[category] = title
		}
		galaxy.Nodes[i] = Node{
			ID:           i,
			Label:        note,
			X:            coords[i][0],
			Y:            coords[i][1],
			Z:            coords[i][2],
			Category:     category,
			ClusterLabel: title,
		}
	}
	return galaxy
}

// stageError types an error from a stage. Errors already carrying a stage
// type pass through; anything else is wrapped into the stage's type.
func stageError(stage errortypes.ErrorType, err error) error {
	for _, t := range []errortypes.ErrorType{
		errortypes.ErrorTypeEmbedding,
		errortypes.ErrorTypeClustering,
		errortypes.ErrorTypeProjection,
	} {
		if errortypes.IsType(err, t) {
			return err
		}
	}

	msg := string(stage) + " stage failed"
	switch stage {
	case errortypes.ErrorTypeEmbedding:
		return errortypes.EmbeddingError(err, msg)
	case errortypes.ErrorTypeClustering:
		return errortypes.ClusteringError(err, msg)
	default:
		return errortypes.ProjectionError(err, msg)
	}
}
