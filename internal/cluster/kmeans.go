// Package cluster groups note embeddings into topics with k-means.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/localrivet/neurogalaxy/internal/vector"
	"gonum.org/v1/gonum/floats"
)

// Defaults for the k-means search.
const (
	DefaultK         = 5
	DefaultSeed      = 42
	DefaultNInit     = 10
	DefaultMaxIter   = 300
	DefaultTolerance = 1e-4
)

// Config holds the clustering parameters. Zero values take the defaults.
type Config struct {
	K         int
	Seed      int64
	NInit     int
	MaxIter   int
	Tolerance float64
}

// Result is the outcome of a single clustering call.
type Result struct {
	// Labels holds one cluster id per input vector, in [0, EffectiveK).
	Labels []int

	Centroids  [][]float64
	Inertia    float64
	Iterations int

	// EffectiveK is the number of non-empty clusters actually produced.
	EffectiveK int
}

// KMeans partitions vectors into k clusters. It holds only configuration;
// every call returns a fresh Result.
type KMeans struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a KMeans clusterer.
func New(cfg Config, logger *slog.Logger) *KMeans {
	if cfg.NInit <= 0 {
		cfg.NInit = DefaultNInit
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = DefaultMaxIter
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KMeans{cfg: cfg, logger: logger}
}

// K returns the configured number of clusters.
func (k *KMeans) K() int {
	return k.cfg.K
}

// Cluster assigns each vector a topic id. The effective number of clusters
// is min(K, distinct vectors), so small inputs never fail and every id in
// [0, EffectiveK) has at least one member. The same input and seed always
// yield the same labels.
func (k *KMeans) Cluster(ctx context.Context, vectors [][]float32) (*Result, error) {
	if k.cfg.K < 1 {
		return nil, errortypes.ClusteringError(
			fmt.Errorf("k must be at least 1, got %d", k.cfg.K), "invalid clustering configuration")
	}
	if len(vectors) == 0 {
		return nil, errortypes.ClusteringError(errors.New("no vectors"), "cannot cluster empty input")
	}

	data, err := vector.ToFloat64(vectors)
	if err != nil {
		return nil, errortypes.ClusteringError(err, "invalid clustering input")
	}

	effK := min(k.cfg.K, countDistinct(data, k.cfg.K))
	tol := k.cfg.Tolerance * meanVariance(data)

	rng := rand.New(rand.NewPCG(uint64(k.cfg.Seed), uint64(k.cfg.Seed)^0x9e3779b97f4a7c15))

	var best *Result
	for run := 0; run < k.cfg.NInit; run++ {
		if err := ctx.Err(); err != nil {
			return nil, errortypes.ClusteringError(err, "clustering cancelled")
		}
		res := k.lloyd(data, seedPlusPlus(data, effK, rng), tol)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}

	compact(best)
	if math.IsNaN(best.Inertia) || math.IsInf(best.Inertia, 0) {
		return nil, errortypes.ClusteringError(errors.New("non-finite inertia"), "clustering diverged")
	}

	k.logger.Debug("Clustered vectors",
		"vectors", len(data),
		"k", k.cfg.K,
		"effective_k", best.EffectiveK,
		"inertia", best.Inertia,
		"iterations", best.Iterations)
	return best, nil
}

// lloyd refines the centroids until they move less than tol in total.
func (k *KMeans) lloyd(data [][]float64, centroids [][]float64, tol float64) *Result {
	n, dim, kk := len(data), len(data[0]), len(centroids)
	labels := make([]int, n)
	dists := make([]float64, n)

	iter := 0
	for iter < k.cfg.MaxIter {
		iter++
		assign(data, centroids, labels, dists)

		sums := make([][]float64, kk)
		counts := make([]int, kk)
		for j := range sums {
			sums[j] = make([]float64, dim)
		}
		for i, row := range data {
			floats.Add(sums[labels[i]], row)
			counts[labels[i]]++
		}

		for j := range kk {
			if counts[j] > 0 {
				continue
			}
			// Reseed an empty cluster at the point farthest from its centroid.
			far := -1
			for i := range data {
				if counts[labels[i]] > 1 && (far < 0 || dists[i] > dists[far]) {
					far = i
				}
			}
			if far < 0 {
				continue
			}
			floats.Sub(sums[labels[far]], data[far])
			counts[labels[far]]--
			labels[far] = j
			dists[far] = 0
			copy(sums[j], data[far])
			counts[j] = 1
		}

		var shift float64
		for j := range kk {
			if counts[j] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[j]), sums[j])
			shift += sqDist(centroids[j], sums[j])
			centroids[j] = sums[j]
		}
		if shift <= tol {
			break
		}
	}

	assign(data, centroids, labels, dists)
	return &Result{
		Labels:     labels,
		Centroids:  centroids,
		Inertia:    floats.Sum(dists),
		Iterations: iter,
		EffectiveK: kk,
	}
}

// assign labels every point with its nearest centroid; ties go to the lowest id.
func assign(data, centroids [][]float64, labels []int, dists []float64) {
	for i, row := range data {
		bestJ, bestD := 0, math.Inf(1)
		for j, c := range centroids {
			if d := sqDist(row, c); d < bestD {
				bestJ, bestD = j, d
			}
		}
		labels[i] = bestJ
		dists[i] = bestD
	}
}

// seedPlusPlus picks k initial centroids with k-means++ weighting.
func seedPlusPlus(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(data)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(data[rng.IntN(n)]))

	d2 := make([]float64, n)
	for i, row := range data {
		d2[i] = sqDist(row, centroids[0])
	}

	for len(centroids) < k {
		total := floats.Sum(d2)
		next := -1
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range d2 {
				r -= d
				if r < 0 && d > 0 {
					next = i
					break
				}
			}
			if next < 0 {
				next = floats.MaxIdx(d2)
			}
		} else {
			next = rng.IntN(n)
		}

		c := clone(data[next])
		centroids = append(centroids, c)
		for i, row := range data {
			d2[i] = math.Min(d2[i], sqDist(row, c))
		}
	}
	return centroids
}

// compact renumbers clusters so ids are contiguous and all non-empty.
func compact(res *Result) {
	remap := make(map[int]int, len(res.Centroids))
	centroids := make([][]float64, 0, len(res.Centroids))
	for i, l := range res.Labels {
		id, ok := remap[l]
		if !ok {
			id = len(centroids)
			remap[l] = id
			centroids = append(centroids, res.Centroids[l])
		}
		res.Labels[i] = id
	}
	res.Centroids = centroids
	res.EffectiveK = len(centroids)
}

// countDistinct counts distinct rows, stopping once limit is reached.
func countDistinct(data [][]float64, limit int) int {
	seen := make(map[string]struct{})
	for _, row := range data {
		key := fmt.Sprint(row)
		seen[key] = struct{}{}
		if len(seen) >= limit {
			break
		}
	}
	return len(seen)
}

// meanVariance is the average per-dimension variance, used to scale the
// convergence tolerance to the data.
func meanVariance(data [][]float64) float64 {
	n, dim := float64(len(data)), len(data[0])
	var total float64
	col := make([]float64, len(data))
	for j := range dim {
		for i, row := range data {
			col[i] = row[j]
		}
		mean := floats.Sum(col) / n
		for _, v := range col {
			total += (v - mean) * (v - mean)
		}
	}
	return total / (n * float64(dim))
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
