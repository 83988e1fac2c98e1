package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/localrivet/neurogalaxy/internal/cluster"
	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/localrivet/neurogalaxy/internal/namer"
	"github.com/localrivet/neurogalaxy/internal/namer/providers"
	"github.com/localrivet/neurogalaxy/internal/projection"
	"github.com/localrivet/neurogalaxy/internal/telemetry"
	"github.com/localrivet/neurogalaxy/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls atomic.Int32
	err   error
	short bool
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

type countingClusterer struct {
	calls  atomic.Int32
	err    error
	labels func(n int) []int
}

func (c *countingClusterer) Cluster(_ context.Context, vectors [][]float32) (*cluster.Result, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	labels := make([]int, len(vectors))
	if c.labels != nil {
		labels = c.labels(len(vectors))
	} else {
		for i := range labels {
			labels[i] = i % 2
		}
	}
	return &cluster.Result{Labels: labels, EffectiveK: 2}, nil
}

type countingProjector struct {
	calls atomic.Int32
	err   error
	nan   bool
}

func (p *countingProjector) Project(_ context.Context, vectors [][]float32) (*projection.Result, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	coords := make([][projection.Components]float64, len(vectors))
	for i := range coords {
		coords[i] = [projection.Components]float64{float64(i), float64(-i), 0.5}
	}
	if p.nan {
		coords[0][1] = math.NaN()
	}
	return &projection.Result{Coords: coords}, nil
}

type countingNamer struct {
	calls atomic.Int32
	names map[int]string
}

func (n *countingNamer) Name(_ context.Context, _ []string, labels []int) map[int]string {
	n.calls.Add(1)
	if n.names != nil {
		return n.names
	}
	out := map[int]string{}
	for _, l := range labels {
		out[l] = "Topic Name"
	}
	return out
}

type fixture struct {
	embedder  *countingEmbedder
	clusterer *countingClusterer
	projector *countingProjector
	namer     *countingNamer
	pipeline  *Pipeline
	metrics   *telemetry.MetricsCollector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		embedder:  &countingEmbedder{},
		clusterer: &countingClusterer{},
		projector: &countingProjector{},
		namer:     &countingNamer{},
		metrics:   telemetry.NewMetricsCollector(),
	}
	p, err := New(Components{
		Embedder:  f.embedder,
		Clusterer: f.clusterer,
		Projector: f.projector,
		Namer:     f.namer,
	}, f.metrics, nil)
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func TestEmptyInputSkipsEveryStage(t *testing.T) {
	f := newFixture(t)

	galaxy, err := f.pipeline.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, galaxy.Nodes)
	assert.Empty(t, galaxy.ClusterNames)

	raw, err := json.Marshal(galaxy)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes": [], "cluster_names": {}}`, string(raw))

	assert.Zero(t, f.embedder.calls.Load())
	assert.Zero(t, f.clusterer.calls.Load())
	assert.Zero(t, f.projector.calls.Load())
	assert.Zero(t, f.namer.calls.Load())
}

func TestProcessAssemblesNodesInOrder(t *testing.T) {
	f := newFixture(t)
	notes := []string{"a", "b", "c"}

	galaxy, err := f.pipeline.Process(context.Background(), notes)
	require.NoError(t, err)
	require.Len(t, galaxy.Nodes, 3)

	for i, node := range galaxy.Nodes {
		assert.Equal(t, i, node.ID)
		assert.Equal(t, notes[i], node.Label)
		assert.Equal(t, float64(i), node.X)
		assert.Equal(t, float64(-i), node.Y)
		assert.Equal(t, 0.5, node.Z)
		assert.Equal(t, i%2, node.Category)
		assert.Equal(t, galaxy.ClusterNames[node.Category], node.ClusterLabel)
	}
	assert.Equal(t, map[int]string{0: "Topic Name", 1: "Topic Name"}, galaxy.ClusterNames)

	assert.Equal(t, int32(1), f.embedder.calls.Load())
	assert.Equal(t, int32(1), f.clusterer.calls.Load())
	assert.Equal(t, int32(1), f.projector.calls.Load())
	assert.Equal(t, int32(1), f.namer.calls.Load())

	assert.Equal(t, int64(1), f.metrics.GetCounter(telemetry.MetricRuns))
	assert.Equal(t, 3.0, f.metrics.GetGauge(telemetry.MetricLastNoteCount))
	assert.Equal(t, 2.0, f.metrics.GetGauge(telemetry.MetricLastClusterCount))
}

func TestClusterNamesKeepNamerTitlesAndFillGaps(t *testing.T) {
	f := newFixture(t)
	f.namer.names = map[int]string{0: "Known Topic", 7: "Unused Topic"}

	galaxy, err := f.pipeline.Process(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, map[int]string{0: "Known Topic", 1: "Category 1", 7: "Unused Topic"}, galaxy.ClusterNames)
	assert.Equal(t, "Known Topic", galaxy.Nodes[0].ClusterLabel)
	assert.Equal(t, "Category 1", galaxy.Nodes[1].ClusterLabel)
}

func TestStageErrors(t *testing.T) {
	tests := []struct {
		name      string
		configure func(f *fixture)
		check     func(error) bool
	}{
		{
			name:      "untyped embedder error",
			configure: func(f *fixture) { f.embedder.err = errors.New("model missing") },
			check:     errortypes.IsEmbeddingError,
		},
		{
			name:      "embedder length mismatch",
			configure: func(f *fixture) { f.embedder.short = true },
			check:     errortypes.IsEmbeddingError,
		},
		{
			name:      "untyped clusterer error",
			configure: func(f *fixture) { f.clusterer.err = errors.New("diverged") },
			check:     errortypes.IsClusteringError,
		},
		{
			name: "clusterer length mismatch",
			configure: func(f *fixture) {
				f.clusterer.labels = func(n int) []int { return make([]int, n-1) }
			},
			check: errortypes.IsClusteringError,
		},
		{
			name:      "typed projector error",
			configure: func(f *fixture) { f.projector.err = errortypes.ProjectionError(errors.New("nan"), "bad") },
			check:     errortypes.IsProjectionError,
		},
		{
			name:      "untyped projector error",
			configure: func(f *fixture) { f.projector.err = errors.New("svd") },
			check:     errortypes.IsProjectionError,
		},
		{
			name:      "non-finite coordinates",
			configure: func(f *fixture) { f.projector.nan = true },
			check:     errortypes.IsProjectionError,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			test.configure(f)

			galaxy, err := f.pipeline.Process(context.Background(), []string{"a", "b", "c"})
			require.Error(t, err)
			assert.Nil(t, galaxy)
			assert.True(t, test.check(err), "unexpected error type: %v", err)
			assert.Zero(t, f.namer.calls.Load(), "namer must not run after a fatal stage error")
			assert.Equal(t, int64(1), f.metrics.GetCounter(telemetry.MetricFailures))

			var appErr *errortypes.AppError
			require.ErrorAs(t, err, &appErr)
			assert.NotEmpty(t, appErr.Stage())
		})
	}
}

func TestEmbedderFailureSkipsLaterStages(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New("boom")

	_, err := f.pipeline.Process(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Zero(t, f.clusterer.calls.Load())
	assert.Zero(t, f.projector.calls.Load())
}

func TestNewRequiresAllComponents(t *testing.T) {
	_, err := New(Components{Embedder: &countingEmbedder{}}, nil, nil)
	require.Error(t, err)
}

func TestEndToEndWithRealComponents(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	metrics := telemetry.NewMetricsCollector()

	p, err := New(Components{
		Embedder:  vector.NewHashingEmbedder(64, 0),
		Clusterer: cluster.New(cluster.Config{K: 3, Seed: 42}, nil),
		Projector: projection.New(projection.DefaultConfig(), nil),
		Namer:     namer.New(namer.Config{Provider: providers.ProviderGroq}, metrics, nil),
	}, metrics, nil)
	require.NoError(t, err)

	notes := []string{
		"buy milk and eggs",
		"buy bread and butter",
		"fix the login bug",
		"fix the signup bug",
		"book flight to paris",
		"book hotel in paris",
	}
	galaxy, err := p.Process(context.Background(), notes)
	require.NoError(t, err)
	require.Len(t, galaxy.Nodes, len(notes))

	for i, node := range galaxy.Nodes {
		assert.Equal(t, i, node.ID)
		assert.Equal(t, notes[i], node.Label)
		name, ok := galaxy.ClusterNames[node.Category]
		require.True(t, ok, "category %d has no name", node.Category)
		assert.Equal(t, namer.Placeholder(node.Category), name)
		for _, v := range []float64{node.X, node.Y, node.Z} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
	assert.LessOrEqual(t, len(galaxy.ClusterNames), 3)
}

func TestSingleNote(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	p, err := New(Components{
		Embedder:  vector.NewHashingEmbedder(32, 0),
		Clusterer: cluster.New(cluster.Config{K: 5, Seed: 42}, nil),
		Projector: projection.New(projection.DefaultConfig(), nil),
		Namer:     namer.New(namer.Config{}, nil, nil),
	}, nil, nil)
	require.NoError(t, err)

	galaxy, err := p.Process(context.Background(), []string{"only note"})
	require.NoError(t, err)
	require.Len(t, galaxy.Nodes, 1)
	assert.Equal(t, Node{ID: 0, Label: "only note", Category: 0, ClusterLabel: "Category 0"}, galaxy.Nodes[0])
	assert.Equal(t, map[int]string{0: "Category 0"}, galaxy.ClusterNames)
}
