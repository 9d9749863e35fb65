package dsp

import "math"

// DefaultTableSize is the length of generated periodic wave tables.
const DefaultTableSize = 2048

// PeriodicTable synthesizes one period from Fourier coefficients:
// sum over k>=1 of real[k]*cos(k*w) + imag[k]*sin(k*w). Index 0 (DC) is
// ignored. The table is normalized to a peak of 1.
func PeriodicTable(real, imag []float64, size int) []float64 {
	if size <= 0 {
		size = DefaultTableSize
	}
	n := len(real)
	if len(imag) > n {
		n = len(imag)
	}
	table := make([]float64, size)
	for k := 1; k < n; k++ {
		var re, im float64
		if k < len(real) {
			re = real[k]
		}
		if k < len(imag) {
			im = imag[k]
		}
		if re == 0 && im == 0 {
			continue
		}
		for i := range table {
			w := 2 * math.Pi * float64(k) * float64(i) / float64(size)
			table[i] += re*math.Cos(w) + im*math.Sin(w)
		}
	}
	peak := 0.0
	for _, v := range table {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak > 0 {
		for i := range table {
			table[i] /= peak
		}
	}
	return table
}

// TableLookup reads table at a normalized phase with linear interpolation.
func TableLookup(table []float64, phase float64) float64 {
	n := len(table)
	if n == 0 {
		return 0
	}
	pos := phase * float64(n)
	i := int(pos)
	frac := pos - float64(i)
	i %= n
	j := (i + 1) % n
	return table[i] + frac*(table[j]-table[i])
}
