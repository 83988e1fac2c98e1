// Package projection lays note embeddings out in 3D so that notes with
// similar embeddings land near each other. The algorithm follows UMAP: a
// fuzzy k-nearest-neighbour graph is built in embedding space and a 3D layout
// is optimised against it with stochastic gradient descent.
package projection

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/localrivet/neurogalaxy/internal/vector"
)

// Defaults for the layout.
const (
	DefaultNNeighbors         = 10
	DefaultMinDist            = 0.3
	DefaultSpread             = 1.0
	DefaultSeed               = 42
	DefaultLearningRate       = 1.0
	DefaultNegativeSampleRate = 5

	defaultEpochsSmall = 500
	defaultEpochsLarge = 200
	largeDataset       = 10000

	// Components is the output dimension.
	Components = 3
)

// Config holds the layout parameters. Zero values take the defaults, except
// MinDist where zero is a valid setting; use a negative value for the default.
type Config struct {
	NNeighbors         int
	MinDist            float64
	Spread             float64
	NEpochs            int
	Seed               int64
	LearningRate       float64
	NegativeSampleRate int
}

// DefaultConfig returns the standard layout configuration.
func DefaultConfig() Config {
	return Config{
		NNeighbors:         DefaultNNeighbors,
		MinDist:            DefaultMinDist,
		Spread:             DefaultSpread,
		Seed:               DefaultSeed,
		LearningRate:       DefaultLearningRate,
		NegativeSampleRate: DefaultNegativeSampleRate,
	}
}

// Result is the outcome of a single projection call.
type Result struct {
	Coords [][Components]float64

	// NNeighbors is the neighbourhood size actually used.
	NNeighbors int

	// A and B are the fitted curve parameters of the low-dimensional similarity.
	A, B float64

	Epochs int
}

// UMAP projects vectors into three dimensions. It holds only configuration.
type UMAP struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a UMAP projector.
func New(cfg Config, logger *slog.Logger) *UMAP {
	if cfg.NNeighbors <= 0 {
		cfg.NNeighbors = DefaultNNeighbors
	}
	if cfg.MinDist < 0 {
		cfg.MinDist = DefaultMinDist
	}
	if cfg.Spread <= 0 {
		cfg.Spread = DefaultSpread
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultLearningRate
	}
	if cfg.NegativeSampleRate <= 0 {
		cfg.NegativeSampleRate = DefaultNegativeSampleRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UMAP{cfg: cfg, logger: logger}
}

// Project returns one 3D point per input vector, in input order.
func (u *UMAP) Project(ctx context.Context, vectors [][]float32) (*Result, error) {
	if len(vectors) == 0 {
		return nil, errortypes.ProjectionError(errors.New("no vectors"), "cannot project empty input")
	}
	data, err := vector.ToFloat64(vectors)
	if err != nil {
		return nil, errortypes.ProjectionError(err, "invalid projection input")
	}

	n := len(data)
	res := &Result{
		Coords:     make([][Components]float64, n),
		NNeighbors: EffectiveNeighbors(u.cfg.NNeighbors, n),
	}

	if n == 1 || allIdentical(data) {
		u.logger.Debug("Degenerate projection input, placing points at origin", "vectors", n)
		return res, nil
	}

	a, b, err := FitAB(u.cfg.Spread, u.cfg.MinDist)
	if err != nil {
		return nil, errortypes.ProjectionError(err, "cannot fit layout curve").
			WithField("min_dist", u.cfg.MinDist).
			WithField("spread", u.cfg.Spread)
	}
	res.A, res.B = a, b

	res.Epochs = u.cfg.NEpochs
	if res.Epochs <= 0 {
		res.Epochs = defaultEpochsSmall
		if n > largeDataset {
			res.Epochs = defaultEpochsLarge
		}
	}

	rng := rand.New(rand.NewPCG(uint64(u.cfg.Seed), uint64(u.cfg.Seed)^0x2545f4914f6cdd1d))

	graph := fuzzyGraph(data, res.NNeighbors)

	embedding, err := pcaInit(data, rng)
	if err != nil {
		return nil, errortypes.ProjectionError(err, "cannot initialise layout")
	}

	opt := layout{
		a:       a,
		b:       b,
		alpha:   u.cfg.LearningRate,
		negRate: u.cfg.NegativeSampleRate,
		epochs:  res.Epochs,
		rng:     rng,
	}
	if err := opt.optimize(ctx, embedding, graph); err != nil {
		return nil, errortypes.ProjectionError(err, "layout optimisation cancelled")
	}

	for i, p := range embedding {
		for d := range Components {
			if math.IsNaN(p[d]) || math.IsInf(p[d], 0) {
				return nil, errortypes.ProjectionError(errors.New("non-finite coordinate"), "layout diverged").
					WithField("point", i)
			}
		}
		res.Coords[i] = p
	}

	u.logger.Debug("Projected vectors",
		"vectors", n,
		"n_neighbors", res.NNeighbors,
		"edges", len(graph),
		"epochs", res.Epochs,
		"a", a,
		"b", b)
	return res, nil
}

// EffectiveNeighbors clamps the neighbourhood size to [1, n-1].
func EffectiveNeighbors(requested, n int) int {
	k := min(requested, n-1)
	if k < 1 {
		return 1
	}
	return k
}

func allIdentical(data [][]float64) bool {
	for _, row := range data[1:] {
		for j, v := range row {
			if v != data[0][j] {
				return false
			}
		}
	}
	return true
}
