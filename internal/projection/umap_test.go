package projection

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBlobs(perBlob, dim int) [][]float32 {
	rng := rand.New(rand.NewPCG(3, 3))
	var out [][]float32
	for b := range 2 {
		for range perBlob {
			p := make([]float32, dim)
			for j := range p {
				p[j] = float32(b*20) + float32(rng.NormFloat64())
			}
			out = append(out, p)
		}
	}
	return out
}

func dist(a, b [Components]float64) float64 {
	var s float64
	for d := range Components {
		s += (a[d] - b[d]) * (a[d] - b[d])
	}
	return math.Sqrt(s)
}

func TestProjectSinglePointAtOrigin(t *testing.T) {
	res, err := New(DefaultConfig(), nil).Project(context.Background(), [][]float32{{1, 2, 3}})
	require.NoError(t, err)
	require.Len(t, res.Coords, 1)
	assert.Equal(t, [Components]float64{}, res.Coords[0])
	assert.Equal(t, 1, res.NNeighbors)
}

func TestProjectIdenticalInputs(t *testing.T) {
	data := [][]float32{{0.5, 0.5}, {0.5, 0.5}, {0.5, 0.5}}
	res, err := New(DefaultConfig(), nil).Project(context.Background(), data)
	require.NoError(t, err)
	for _, p := range res.Coords {
		assert.Equal(t, [Components]float64{}, p)
	}
}

func TestProjectKeepsBlobsApart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NNeighbors = 5
	data := twoBlobs(10, 5)

	res, err := New(cfg, nil).Project(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, res.Coords, len(data))

	var intra, inter float64
	var nIntra, nInter int
	for i := range data {
		for j := i + 1; j < len(data); j++ {
			d := dist(res.Coords[i], res.Coords[j])
			if (i < 10) == (j < 10) {
				intra += d
				nIntra++
			} else {
				inter += d
				nInter++
			}
		}
	}
	assert.Less(t, intra/float64(nIntra), inter/float64(nInter))
}

func TestProjectIsReproducibleAndFinite(t *testing.T) {
	data := twoBlobs(6, 4)
	first, err := New(DefaultConfig(), nil).Project(context.Background(), data)
	require.NoError(t, err)
	second, err := New(DefaultConfig(), nil).Project(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, first.Coords, second.Coords)
	for _, p := range first.Coords {
		for _, v := range p {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

func TestProjectClampsNeighbours(t *testing.T) {
	data := [][]float32{{0, 0}, {1, 0}, {0, 1}}
	res, err := New(DefaultConfig(), nil).Project(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NNeighbors)
	assert.Len(t, res.Coords, 3)
}

func TestProjectTwoPoints(t *testing.T) {
	res, err := New(DefaultConfig(), nil).Project(context.Background(), [][]float32{{0}, {1}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NNeighbors)
	assert.NotEqual(t, res.Coords[0], res.Coords[1])
}

func TestProjectErrors(t *testing.T) {
	tests := []struct {
		name string
		data [][]float32
	}{
		{"empty", nil},
		{"nan", [][]float32{{float32(math.NaN())}, {1}}},
		{"ragged", [][]float32{{1, 2}, {1}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(DefaultConfig(), nil).Project(context.Background(), test.data)
			require.Error(t, err)
			assert.True(t, errortypes.IsProjectionError(err))
		})
	}
}

func TestEffectiveNeighbors(t *testing.T) {
	tests := []struct{ requested, n, want int }{
		{10, 1, 1},
		{10, 2, 1},
		{10, 5, 4},
		{10, 50, 10},
		{3, 50, 3},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, EffectiveNeighbors(test.requested, test.n))
	}
}

func TestFitAB(t *testing.T) {
	a, b, err := FitAB(1.0, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.58, a, 0.1)
	assert.InDelta(t, 0.90, b, 0.1)

	_, _, err = FitAB(0, 0.1)
	assert.Error(t, err)
}

func TestFuzzyGraphIsSymmetric(t *testing.T) {
	data := [][]float64{{0, 0}, {1, 0}, {5, 5}, {6, 5}}
	edges := fuzzyGraph(data, 1)

	weights := map[[2]int]float64{}
	for _, e := range edges {
		assert.NotEqual(t, e.head, e.tail)
		assert.Greater(t, e.weight, 0.0)
		assert.LessOrEqual(t, e.weight, 1.0)
		weights[[2]int{e.head, e.tail}] = e.weight
	}
	for key, w := range weights {
		assert.InDelta(t, w, weights[[2]int{key[1], key[0]}], 1e-12)
	}
}
