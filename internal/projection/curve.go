package projection

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

const curveSamples = 300

// FitAB fits the parameters of the low-dimensional similarity curve
// 1 / (1 + a·x^(2b)) to the target profile that is flat at 1 up to minDist
// and then decays as exp(-(x - minDist) / spread).
func FitAB(spread, minDist float64) (a, b float64, err error) {
	if spread <= 0 || minDist < 0 || math.IsNaN(spread) || math.IsNaN(minDist) {
		return 0, 0, fmt.Errorf("invalid curve settings spread=%v min_dist=%v", spread, minDist)
	}

	xs := make([]float64, curveSamples)
	ys := make([]float64, curveSamples)
	step := 3 * spread / float64(curveSamples-1)
	for i := range xs {
		x := float64(i) * step
		xs[i] = x
		if x < minDist {
			ys[i] = 1
		} else {
			ys[i] = math.Exp(-(x - minDist) / spread)
		}
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			if p[0] <= 0 || p[1] <= 0 {
				return 1e10
			}
			var sse float64
			for i, x := range xs {
				f := 1 / (1 + p[0]*math.Pow(x, 2*p[1]))
				sse += (f - ys[i]) * (f - ys[i])
			}
			return sse
		},
	}

	result, err := optimize.Minimize(problem, []float64{1, 1}, nil, &optimize.NelderMead{})
	if result == nil {
		return 0, 0, fmt.Errorf("curve fit failed: %w", err)
	}
	a, b = result.X[0], result.X[1]
	if a <= 0 || b <= 0 || math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		if err == nil {
			err = errors.New("non-positive parameters")
		}
		return 0, 0, fmt.Errorf("curve fit failed: %w", err)
	}
	return a, b, nil
}
