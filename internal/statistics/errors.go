// Package statistics estimates price-to-moving-average densities and derives
// win rates and martingale bet schedules from them.
package statistics

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below via errors.Is
var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrInvalidSample = errors.New("invalid sample")
	ErrInvalidRange  = errors.New("invalid range")
)

// ConfigurationError reports an invalid parameter combination
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is reports whether target is ErrConfiguration
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// InvalidSampleError reports a sample that cannot support density estimation
type InvalidSampleError struct {
	Size    int
	Message string
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid sample of size %d: %s", e.Size, e.Message)
}

// Is reports whether target is ErrInvalidSample
func (e *InvalidSampleError) Is(target error) bool {
	return target == ErrInvalidSample
}

// InvalidRangeError reports integration bounds in an unsupported orientation
type InvalidRangeError struct {
	Start float64
	End   float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: start %g is after end %g", e.Start, e.End)
}

// Is reports whether target is ErrInvalidRange
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}
