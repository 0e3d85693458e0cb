package statistics

// DefaultIntegralSamples is the grid size used when integrating a density
const DefaultIntegralSamples = 1000

// Integral approximates the integral of p over [start, end] with a left
// Riemann sum on nSamples equally spaced points. Each of the nSamples-1
// intervals contributes its width times p at its left edge, so the estimate
// is biased by the slope of p; for smooth densities on a 1000 point grid the
// bias is negligible. Fewer than two samples give zero. Reversed ranges are
// rejected with InvalidRangeError.
func Integral(p Density, start, end float64, nSamples int) (float64, error) {
	if start > end {
		return 0, &InvalidRangeError{Start: start, End: end}
	}
	if nSamples < 2 {
		return 0, nil
	}
	x := linspace(start, end, nSamples)
	total := 0.0
	for i := 1; i < len(x); i++ {
		total += (x[i] - x[i-1]) * p.Evaluate(x[i-1])
	}
	return total, nil
}

// linspace returns n evenly spaced points from start to end inclusive
func linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	x := make([]float64, n)
	if n == 1 {
		x[0] = start
		return x
	}
	step := (end - start) / float64(n-1)
	for i := range x {
		x[i] = start + float64(i)*step
	}
	x[n-1] = end
	return x
}
