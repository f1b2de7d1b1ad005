package control

import "math"

// DefaultPeriodS is the control loop period assumed by controllers
const DefaultPeriodS = 0.02

// ClampFloat clamps value between min and max
func ClampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// InputModulus wraps value into [min, max) for continuous inputs such as angles
func InputModulus(value, min, max float64) float64 {
	span := max - min
	n := math.Floor((value - min) / span)
	return value - n*span
}
