package dsp

import "math"

// TanhCurve returns n points of tanh(drive*x) for x evenly spaced over
// [-1, 1), the soft-saturation transfer used by every voice layer.
func TanhCurve(n int, drive float64) []float64 {
	curve := make([]float64, n)
	half := float64(n) / 2
	for i := range curve {
		curve[i] = math.Tanh((float64(i) - half) / half * drive)
	}
	return curve
}

// Shape maps x through curve. The input is clamped to [-1, 1] and mapped
// across the full curve length with linear interpolation.
func Shape(curve []float64, x float64) float64 {
	n := len(curve)
	switch n {
	case 0:
		return x
	case 1:
		return curve[0]
	}
	if x <= -1 {
		return curve[0]
	}
	if x >= 1 {
		return curve[n-1]
	}
	pos := float64(n-1) * (x + 1) / 2
	i := int(pos)
	if i >= n-1 {
		return curve[n-1]
	}
	frac := pos - float64(i)
	return curve[i] + frac*(curve[i+1]-curve[i])
}
