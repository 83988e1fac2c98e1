package projection

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

const (
	initScale   = 10.0
	initNoise   = 1e-4
	gradClip    = 4.0
	repulsion   = 1.0
	repulseBias = 1e-3
)

// pcaInit places points on their first three principal components, scaled so
// the largest coordinate magnitude is initScale, plus a small seeded jitter.
// Missing components (rank below three) start from the jitter alone.
func pcaInit(data [][]float64, rng *rand.Rand) ([][Components]float64, error) {
	n, dim := len(data), len(data[0])

	x := mat.NewDense(n, dim, nil)
	for j := range dim {
		var mean float64
		for i := range n {
			mean += data[i][j]
		}
		mean /= float64(n)
		for i := range n {
			x.Set(i, j, data[i][j]-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, errors.New("svd factorisation failed")
	}
	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)

	out := make([][Components]float64, n)
	comps := min(Components, len(values))
	var maxAbs float64
	for i := range n {
		for c := range comps {
			v := u.At(i, c) * values[c]
			out[i][c] = v
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}

	scale := 1.0
	if maxAbs > 0 {
		scale = initScale / maxAbs
	}
	for i := range out {
		for c := range Components {
			out[i][c] = out[i][c]*scale + rng.NormFloat64()*initNoise
		}
	}
	return out, nil
}

// layout optimises a 3D embedding against the membership graph with
// attractive moves along edges and repulsive negative samples.
type layout struct {
	a, b    float64
	alpha   float64
	negRate int
	epochs  int
	rng     *rand.Rand
}

func (l *layout) optimize(ctx context.Context, emb [][Components]float64, edges []edge) error {
	var maxW float64
	for _, e := range edges {
		maxW = math.Max(maxW, e.weight)
	}

	// Edges too weak to be sampled even once over all epochs are skipped.
	kept := edges[:0:0]
	for _, e := range edges {
		if e.weight*float64(l.epochs)/maxW >= 1 {
			kept = append(kept, e)
		}
	}

	m := len(kept)
	perSample := make([]float64, m)
	nextSample := make([]float64, m)
	perNeg := make([]float64, m)
	nextNeg := make([]float64, m)
	for i, e := range kept {
		perSample[i] = maxW / e.weight
		nextSample[i] = perSample[i]
		perNeg[i] = perSample[i] / float64(l.negRate)
		nextNeg[i] = perNeg[i]
	}

	n := len(emb)
	for epoch := range l.epochs {
		if err := ctx.Err(); err != nil {
			return err
		}
		alpha := l.alpha * (1 - float64(epoch)/float64(l.epochs))
		ep := float64(epoch)

		for i, e := range kept {
			if nextSample[i] > ep {
				continue
			}
			cur, oth := &emb[e.head], &emb[e.tail]

			d2 := sqDist3(cur, oth)
			var coeff float64
			if d2 > 0 {
				coeff = -2 * l.a * l.b * math.Pow(d2, l.b-1) / (l.a*math.Pow(d2, l.b) + 1)
			}
			for d := range Components {
				g := clip(coeff * (cur[d] - oth[d]))
				cur[d] += g * alpha
				oth[d] -= g * alpha
			}
			nextSample[i] += perSample[i]

			negatives := int((ep - nextNeg[i]) / perNeg[i])
			for range negatives {
				k := l.rng.IntN(n)
				if k == e.head {
					continue
				}
				oth := &emb[k]
				d2 := sqDist3(cur, oth)
				coeff = 0
				if d2 > 0 {
					coeff = 2 * repulsion * l.b / ((repulseBias + d2) * (l.a*math.Pow(d2, l.b) + 1))
				}
				for d := range Components {
					g := gradClip
					if coeff > 0 {
						g = clip(coeff * (cur[d] - oth[d]))
					}
					cur[d] += g * alpha
				}
			}
			nextNeg[i] += float64(negatives) * perNeg[i]
		}
	}
	return nil
}

func sqDist3(a, b *[Components]float64) float64 {
	var s float64
	for d := range Components {
		diff := a[d] - b[d]
		s += diff * diff
	}
	return s
}

func clip(v float64) float64 {
	return math.Max(-gradClip, math.Min(gradClip, v))
}
