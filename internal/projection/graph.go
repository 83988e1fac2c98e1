package projection

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

const (
	smoothIterations = 64
	smoothTolerance  = 1e-5
	minKDistScale    = 1e-3
)

// edge is one directed entry of the symmetric membership graph.
type edge struct {
	head, tail int
	weight     float64
}

type neighbour struct {
	index int
	dist  float64
}

// nearestNeighbours returns, for every point, its k nearest other points by
// Euclidean distance. The point itself is never its own neighbour.
func nearestNeighbours(data [][]float64, k int) [][]neighbour {
	n := len(data)
	out := make([][]neighbour, n)
	for i := range n {
		cand := make([]neighbour, 0, n-1)
		for j := range n {
			if j == i {
				continue
			}
			cand = append(cand, neighbour{index: j, dist: floats.Distance(data[i], data[j], 2)})
		}
		slices.SortFunc(cand, func(x, y neighbour) int {
			if c := cmp.Compare(x.dist, y.dist); c != 0 {
				return c
			}
			return cmp.Compare(x.index, y.index)
		})
		out[i] = cand[:min(k, len(cand))]
	}
	return out
}

// smoothDistances finds, per point, the distance to its closest distinct
// neighbour (rho) and a bandwidth sigma such that the memberships of its k
// neighbours sum to log2(k).
func smoothDistances(knn [][]neighbour, k int) (rho, sigma []float64) {
	n := len(knn)
	rho = make([]float64, n)
	sigma = make([]float64, n)
	target := math.Log2(float64(k))

	var meanAll float64
	var count int
	for _, nbrs := range knn {
		for _, nb := range nbrs {
			meanAll += nb.dist
			count++
		}
	}
	if count > 0 {
		meanAll /= float64(count)
	}

	for i, nbrs := range knn {
		var meanI float64
		for _, nb := range nbrs {
			if rho[i] == 0 && nb.dist > 0 {
				rho[i] = nb.dist
			}
			meanI += nb.dist
		}
		if len(nbrs) > 0 {
			meanI /= float64(len(nbrs))
		}

		lo, hi, mid := 0.0, math.Inf(1), 1.0
		for range smoothIterations {
			var psum float64
			for _, nb := range nbrs {
				d := nb.dist - rho[i]
				if d > 0 {
					psum += math.Exp(-d / mid)
				} else {
					psum++
				}
			}
			if math.Abs(psum-target) < smoothTolerance {
				break
			}
			if psum > target {
				hi = mid
				mid = (lo + hi) / 2
			} else {
				lo = mid
				if math.IsInf(hi, 1) {
					mid *= 2
				} else {
					mid = (lo + hi) / 2
				}
			}
		}

		floor := minKDistScale * meanAll
		if rho[i] > 0 {
			floor = minKDistScale * meanI
		}
		sigma[i] = math.Max(mid, floor)
	}
	return rho, sigma
}

// fuzzyGraph builds the symmetric membership graph W = A + Aᵀ - A∘Aᵀ from the
// directed kNN memberships A. Every undirected edge appears in both
// directions in the returned list, ordered by head then tail.
func fuzzyGraph(data [][]float64, k int) []edge {
	knn := nearestNeighbours(data, k)
	rho, sigma := smoothDistances(knn, k)

	directed := make([]map[int]float64, len(data))
	for i, nbrs := range knn {
		directed[i] = make(map[int]float64, len(nbrs))
		for _, nb := range nbrs {
			w := 1.0
			if d := nb.dist - rho[i]; d > 0 && sigma[i] > 0 {
				w = math.Exp(-d / sigma[i])
			}
			directed[i][nb.index] = w
		}
	}

	reverse := make([][]int, len(data))
	for i, nbrs := range knn {
		for _, nb := range nbrs {
			reverse[nb.index] = append(reverse[nb.index], i)
		}
	}

	var edges []edge
	for i := range directed {
		ordered := make([]int, 0, len(directed[i])+len(reverse[i]))
		for j := range directed[i] {
			ordered = append(ordered, j)
		}
		for _, j := range reverse[i] {
			if _, ok := directed[i][j]; !ok {
				ordered = append(ordered, j)
			}
		}
		slices.Sort(ordered)

		for _, j := range ordered {
			a, b := directed[i][j], directed[j][i]
			if w := a + b - a*b; w > 0 {
				edges = append(edges, edge{head: i, tail: j, weight: w})
			}
		}
	}
	return edges
}
