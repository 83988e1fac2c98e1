package cluster

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobs generates perPoint points around each center with a small seeded jitter.
func blobs(centers [][]float32, perBlob int, spread float32) [][]float32 {
	rng := rand.New(rand.NewPCG(7, 7))
	var out [][]float32
	for _, c := range centers {
		for range perBlob {
			p := make([]float32, len(c))
			for j := range c {
				p[j] = c[j] + (rng.Float32()*2-1)*spread
			}
			out = append(out, p)
		}
	}
	return out
}

func TestClusterSeparatesBlobs(t *testing.T) {
	data := blobs([][]float32{{0, 0}, {10, 10}, {-10, 10}}, 8, 0.5)
	km := New(Config{K: 3, Seed: 42}, nil)

	res, err := km.Cluster(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, res.Labels, len(data))
	assert.Equal(t, 3, res.EffectiveK)

	seen := map[int]bool{}
	for b := range 3 {
		first := res.Labels[b*8]
		for i := b * 8; i < (b+1)*8; i++ {
			assert.Equal(t, first, res.Labels[i], "blob %d split across clusters", b)
		}
		assert.False(t, seen[first], "two blobs share cluster %d", first)
		seen[first] = true
	}
	assert.False(t, math.IsNaN(res.Inertia))
}

func TestClusterIsReproducible(t *testing.T) {
	data := blobs([][]float32{{0, 0, 0}, {5, 5, 5}}, 10, 2)

	first, err := New(Config{K: 4, Seed: 42}, nil).Cluster(context.Background(), data)
	require.NoError(t, err)
	second, err := New(Config{K: 4, Seed: 42}, nil).Cluster(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, first.Labels, second.Labels)
	assert.InDelta(t, first.Inertia, second.Inertia, 1e-12)
}

func TestClusterFewerPointsThanK(t *testing.T) {
	data := [][]float32{{1, 0}, {0, 1}}
	res, err := New(Config{K: 5, Seed: 42}, nil).Cluster(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 2, res.EffectiveK)
	assert.NotEqual(t, res.Labels[0], res.Labels[1])
	for _, l := range res.Labels {
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, 2)
	}
}

func TestClusterIdenticalVectors(t *testing.T) {
	data := [][]float32{{1, 2}, {1, 2}, {1, 2}, {1, 2}}
	res, err := New(Config{K: 3, Seed: 42}, nil).Cluster(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 1, res.EffectiveK)
	assert.Equal(t, []int{0, 0, 0, 0}, res.Labels)
	assert.InDelta(t, 0, res.Inertia, 1e-12)
}

func TestClusterSinglePoint(t *testing.T) {
	res, err := New(Config{K: 5, Seed: 42}, nil).Cluster(context.Background(), [][]float32{{3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, res.Labels)
	assert.Equal(t, 1, res.EffectiveK)
}

func TestClusterLabelsAreContiguous(t *testing.T) {
	data := blobs([][]float32{{0, 0}, {3, 0}, {0, 3}, {3, 3}}, 5, 1)
	res, err := New(Config{K: 6, Seed: 1}, nil).Cluster(context.Background(), data)
	require.NoError(t, err)

	counts := make([]int, res.EffectiveK)
	for _, l := range res.Labels {
		require.Less(t, l, res.EffectiveK)
		counts[l]++
	}
	for id, c := range counts {
		assert.Positive(t, c, "cluster %d is empty", id)
	}
	assert.Len(t, res.Centroids, res.EffectiveK)
}

func TestClusterErrors(t *testing.T) {
	tests := []struct {
		name string
		k    int
		data [][]float32
	}{
		{"empty input", 3, nil},
		{"zero k", 0, [][]float32{{1}}},
		{"nan", 2, [][]float32{{1, float32(math.NaN())}, {0, 0}}},
		{"inf", 2, [][]float32{{float32(math.Inf(-1))}, {0}}},
		{"ragged", 2, [][]float32{{1, 2}, {1}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(Config{K: test.k, Seed: 42}, nil).Cluster(context.Background(), test.data)
			require.Error(t, err)
			assert.True(t, errortypes.IsClusteringError(err))
		})
	}
}
