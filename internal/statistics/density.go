package statistics

import (
	"math"
)

// Density is a probability density that can be evaluated at any real point
type Density interface {
	// Evaluate returns the density at x
	Evaluate(x float64) float64
	// EvaluateAll returns one density value per input point
	EvaluateAll(xs []float64) []float64
}

// BandwidthRule selects the kernel bandwidth factor from the sample size
type BandwidthRule int

const (
	// ScottBandwidth uses n^(-1/5)
	ScottBandwidth BandwidthRule = iota
	// SilvermanBandwidth uses (3n/4)^(-1/5)
	SilvermanBandwidth
)

// KDEOption configures a GaussianKDE
type KDEOption func(*kdeOptions)

type kdeOptions struct {
	rule   BandwidthRule
	factor float64
}

// WithSilvermanBandwidth selects Silverman's rule of thumb
func WithSilvermanBandwidth() KDEOption {
	return func(o *kdeOptions) { o.rule = SilvermanBandwidth }
}

// WithBandwidthFactor fixes the factor applied to the sample standard deviation
func WithBandwidthFactor(factor float64) KDEOption {
	return func(o *kdeOptions) { o.factor = factor }
}

// GaussianKDE is a one-dimensional Gaussian kernel density estimate
type GaussianKDE struct {
	sample    []float64
	bandwidth float64
	norm      float64
}

// NewGaussianKDE builds a density estimate from a sample. The sample needs at
// least two distinct finite values, otherwise bandwidth selection is undefined.
func NewGaussianKDE(sample []float64, opts ...KDEOption) (*GaussianKDE, error) {
	options := kdeOptions{rule: ScottBandwidth}
	for _, opt := range opts {
		opt(&options)
	}

	n := len(sample)
	if n < 2 {
		return nil, &InvalidSampleError{Size: n, Message: "at least 2 points are required"}
	}
	for _, v := range sample {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InvalidSampleError{Size: n, Message: "sample contains non-finite values"}
		}
	}

	std := sampleStd(sample)
	if !hasDistinct(sample) || std == 0 || math.IsNaN(std) {
		return nil, &InvalidSampleError{Size: n, Message: "sample has zero variance"}
	}

	factor := options.factor
	if factor <= 0 {
		factor = bandwidthFactor(options.rule, n)
	}
	bandwidth := std * factor

	data := make([]float64, n)
	copy(data, sample)

	return &GaussianKDE{
		sample:    data,
		bandwidth: bandwidth,
		norm:      1.0 / (float64(n) * bandwidth * math.Sqrt(2*math.Pi)),
	}, nil
}

// Evaluate returns the density at x
func (k *GaussianKDE) Evaluate(x float64) float64 {
	sum := 0.0
	for _, xi := range k.sample {
		z := (x - xi) / k.bandwidth
		sum += math.Exp(-0.5 * z * z)
	}
	return sum * k.norm
}

// EvaluateAll returns the density at each of xs
func (k *GaussianKDE) EvaluateAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = k.Evaluate(x)
	}
	return out
}

// Bandwidth returns the kernel standard deviation
func (k *GaussianKDE) Bandwidth() float64 {
	return k.bandwidth
}

// SampleSize returns the number of points the estimate was built from
func (k *GaussianKDE) SampleSize() int {
	return len(k.sample)
}

func bandwidthFactor(rule BandwidthRule, n int) float64 {
	switch rule {
	case SilvermanBandwidth:
		return math.Pow(float64(n)*3.0/4.0, -0.2)
	default:
		return math.Pow(float64(n), -0.2)
	}
}

func hasDistinct(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return true
		}
	}
	return false
}

// sampleStd is the standard deviation with n-1 degrees of freedom
func sampleStd(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
