package statistics

import "math"

// Sampler defaults
const (
	DefaultDistributionPoints = 1000
	DefaultDropThreshold      = 1e-2
)

// Distribution samples p at nPoints evenly spaced x values over
// [xStart, xEnd]. When dropThresh is positive, points whose density does not
// exceed it are removed; relative order is preserved either way.
func Distribution(p Density, xStart, xEnd float64, nPoints int, dropThresh float64) ([]float64, []float64) {
	xs := linspace(xStart, xEnd, nPoints)
	ys := p.EvaluateAll(xs)
	if dropThresh <= 0 {
		return xs, ys
	}

	keptX := make([]float64, 0, len(xs))
	keptY := make([]float64, 0, len(ys))
	for i := range xs {
		if ys[i] > dropThresh {
			keptX = append(keptX, xs[i])
			keptY = append(keptY, ys[i])
		}
	}
	return keptX, keptY
}

// NearestIndex returns the first index of axis closest to value, or -1 for an
// empty axis
func NearestIndex(axis []float64, value float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, v := range axis {
		if d := math.Abs(v - value); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
