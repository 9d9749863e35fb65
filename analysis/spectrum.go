package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// hann returns a symmetric Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// floorPow2 returns the largest power of two <= n, or 0.
func floorPow2(n int) int {
	if n < 1 {
		return 0
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// Spectrum holds magnitude bins 0..size/2 of one windowed frame.
type Spectrum struct {
	SampleRate int
	Size       int
	Mag        []float64
}

// BinHz is the frequency spacing of the bins.
func (s Spectrum) BinHz() float64 {
	return float64(s.SampleRate) / float64(s.Size)
}

// Centroid is the magnitude-weighted mean frequency, excluding DC.
func (s Spectrum) Centroid() float64 {
	var num, den float64
	for k := 1; k < len(s.Mag); k++ {
		num += float64(k) * s.BinHz() * s.Mag[k]
		den += s.Mag[k]
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Peak returns the frequency of the strongest non-DC bin.
func (s Spectrum) Peak() float64 {
	best, bestK := 0.0, 0
	for k := 1; k < len(s.Mag); k++ {
		if s.Mag[k] > best {
			best, bestK = s.Mag[k], k
		}
	}
	return float64(bestK) * s.BinHz()
}

// Analyzer computes Hann-windowed magnitude spectra of a fixed size.
type Analyzer struct {
	size    int
	forward func()
	window  []float64
	buf     []float64
	spec    []complex128
}

// NewAnalyzer creates an analyzer for frames of size samples. size must
// be a power of two.
func NewAnalyzer(size int) (*Analyzer, error) {
	if size < 2 || floorPow2(size) != size {
		return nil, fmt.Errorf("fft size must be a power of two >= 2, got %d", size)
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		size:   size,
		window: hann(size),
		buf:    make([]float64, size),
		spec:   make([]complex128, size/2+1),
	}
	a.forward = func() { plan.Forward(a.spec, a.buf) }
	return a, nil
}

// Size is the frame length.
func (a *Analyzer) Size() int { return a.size }

// Frame analyzes x[start:start+size]. Samples past the end of x are zero.
func (a *Analyzer) Frame(x []float64, start, sampleRate int) Spectrum {
	for i := 0; i < a.size; i++ {
		v := 0.0
		if j := start + i; j >= 0 && j < len(x) {
			v = x[j]
		}
		a.buf[i] = v * a.window[i]
	}
	a.forward()
	mag := make([]float64, len(a.spec))
	for k, c := range a.spec {
		mag[k] = cmplx.Abs(c)
	}
	return Spectrum{SampleRate: sampleRate, Size: a.size, Mag: mag}
}

// SpectralCentroid returns the centroid of the longest power-of-two
// prefix of x, capped at 8192 samples.
func SpectralCentroid(x []float64, sampleRate int) (float64, error) {
	size := floorPow2(min(len(x), 8192))
	if size < 64 {
		return 0, fmt.Errorf("need at least 64 samples, got %d", len(x))
	}
	a, err := NewAnalyzer(size)
	if err != nil {
		return 0, err
	}
	return a.Frame(x, 0, sampleRate).Centroid(), nil
}

// CentroidTrack returns the spectral centroid of successive frames.
func CentroidTrack(x []float64, sampleRate, size, hop int) ([]float64, error) {
	if hop < 1 {
		return nil, fmt.Errorf("hop must be >= 1")
	}
	a, err := NewAnalyzer(size)
	if err != nil {
		return nil, err
	}
	var out []float64
	for start := 0; start+size <= len(x); start += hop {
		out = append(out, a.Frame(x, start, sampleRate).Centroid())
	}
	return out, nil
}

// RMSEnvelope returns the RMS of successive frames.
func RMSEnvelope(x []float64, frame, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}
