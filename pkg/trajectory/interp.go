package trajectory

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Interpolator is a continuous position function for a single joint,
// built from that joint's waypoint samples.
type Interpolator interface {
	// Predict returns the joint position at trajectory time t. Behavior
	// outside the fitted time range is clamped to the boundary samples.
	Predict(t float64) float64
}

// InterpolatorBuilder builds an Interpolator from sorted time samples and
// matching position samples.
type InterpolatorBuilder interface {
	Build(times, positions []float64) (Interpolator, error)
}

// PCHIP builds monotone, shape-preserving piecewise cubic interpolators
// using the Fritsch-Butland method. The fitted curve passes through every
// sample and does not overshoot between samples, which keeps interpolated
// joint targets inside the waypoint envelope.
type PCHIP struct{}

// Build fits a monotone cubic to the given samples. times must be strictly
// increasing and at least two samples long.
func (PCHIP) Build(times, positions []float64) (Interpolator, error) {
	if len(times) != len(positions) {
		return nil, fmt.Errorf("sample count mismatch: %d times, %d positions", len(times), len(positions))
	}
	if len(times) < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d", len(times))
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("times not strictly increasing at sample %d", i)
		}
	}
	var fb interp.FritschButland
	if err := fb.Fit(times, positions); err != nil {
		return nil, fmt.Errorf("fit failed: %w", err)
	}
	return &fb, nil
}
