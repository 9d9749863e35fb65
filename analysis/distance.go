package analysis

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

// Metrics compares a rendered note against a reference recording.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`
	CentroidDiffHz  float64 `json:"centroid_diff_hz"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

const (
	envFrame = 256
	envHop   = 128
)

// Compare returns distance metrics and a combined score in [0,1], lower is
// closer. Both signals are aligned on their onset and RMS-normalized, so
// the score reflects envelope shape and spectral balance, not level.
func Compare(reference, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	ref := trimLeadingSilence(reference, 1e-6)
	cand := trimLeadingSilence(candidate, 1e-6)
	if sampleRate <= 0 || len(ref) == 0 || len(cand) == 0 {
		return m
	}
	ref = normalizeRMS(ref, 0.1)
	cand = normalizeRMS(cand, 0.1)

	maxLag := min(sampleRate/20, len(ref)-1, len(cand)-1)
	lag := 0
	if maxLag > 0 {
		lag = EstimateLag(ref, cand, maxLag)
	}
	m.LagSamples = lag
	ref, cand = alignByLag(ref, cand, lag)
	n := min(len(ref), len(cand), sampleRate*12)
	if n < 1024 {
		return m
	}
	ref, cand = ref[:n], cand[:n]
	m.AlignedFrames = n

	refEnv := RMSEnvelope(ref, envFrame, envHop)
	candEnv := RMSEnvelope(cand, envFrame, envHop)
	diff := make([]float64, min(len(refEnv), len(candEnv)))
	for i := range diff {
		diff[i] = linToDB(refEnv[i]) - linToDB(candEnv[i])
	}
	m.EnvelopeRMSEDB = rms1(diff)

	m.SpectralRMSEDB, m.CentroidDiffHz = spectralDistance(ref, cand, sampleRate)

	hopSec := float64(envHop) / float64(sampleRate)
	m.RefDecayDBPerS = DecaySlopeDBPerS(refEnv, hopSec)
	m.CandDecayDBPerS = DecaySlopeDBPerS(candEnv, hopSec)
	if isFinite(m.RefDecayDBPerS) && isFinite(m.CandDecayDBPerS) {
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
	}

	envNorm := clamp01(m.EnvelopeRMSEDB / 30.0)
	specNorm := clamp01(m.SpectralRMSEDB / 30.0)
	decNorm := clamp01(m.DecayDiffDBPerS / 40.0)
	centNorm := clamp01(m.CentroidDiffHz / 2000.0)
	m.Score = clamp01(0.35*envNorm + 0.30*specNorm + 0.20*decNorm + 0.15*centNorm)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))
	return m
}

// EstimateLag returns the shift of cand relative to ref in [-maxLag,
// maxLag] that maximizes their cross-correlation. A positive lag means ref
// starts later than cand.
func EstimateLag(ref, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	// correlate through convolution with the time-reversed candidate
	a := make([]float32, len(ref))
	for i, v := range ref {
		a[i] = float32(v)
	}
	b := make([]float32, len(cand))
	for i, v := range cand {
		b[len(cand)-1-i] = float32(v)
	}
	corr := make([]float32, len(a)+len(b)-1)
	if err := algofft.ConvolveReal(corr, a, b); err != nil {
		return estimateLagDirect(ref, cand, maxLag)
	}
	zero := len(cand) - 1
	best, bestLag := math.Inf(-1), 0
	for lag := -maxLag; lag <= maxLag; lag++ {
		i := zero + lag
		if i < 0 || i >= len(corr) {
			continue
		}
		if v := float64(corr[i]); v > best {
			best, bestLag = v, lag
		}
	}
	return bestLag
}

func estimateLagDirect(ref, cand []float64, maxLag int) int {
	best, bestLag := math.Inf(-1), 0
	for lag := -maxLag; lag <= maxLag; lag++ {
		if s := dotAtLag(ref, cand, lag); s > best {
			best, bestLag = s, lag
		}
	}
	return bestLag
}

func dotAtLag(a, b []float64, lag int) float64 {
	ai, bi := 0, 0
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	if -lag >= len(cand) {
		return nil, nil
	}
	return ref, cand[-lag:]
}

// spectralDistance averages log-magnitude spectra over the first second
// and compares them bin by bin.
func spectralDistance(a, b []float64, sampleRate int) (rmseDB, centroidDiff float64) {
	size := floorPow2(min(len(a), 4096))
	an, err := NewAnalyzer(size)
	if err != nil {
		return 0, 0
	}
	end := min(len(a), sampleRate)
	var sa, sb Spectrum
	frames := 0
	for start := 0; start+size <= end || frames == 0; start += size / 2 {
		fa := an.Frame(a, start, sampleRate)
		fb := an.Frame(b, start, sampleRate)
		if frames == 0 {
			sa, sb = fa, fb
		} else {
			for k := range sa.Mag {
				sa.Mag[k] += fa.Mag[k]
				sb.Mag[k] += fb.Mag[k]
			}
		}
		frames++
	}
	var sum float64
	for k := 1; k < len(sa.Mag); k++ {
		d := linToDB(sa.Mag[k]/float64(frames)) - linToDB(sb.Mag[k]/float64(frames))
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(sa.Mag)-1)), math.Abs(sa.Centroid() - sb.Centroid())
}

// DecaySlopeDBPerS fits a line to the envelope in dB from its peak down to
// 60 dB below it. It returns NaN when the envelope is too short.
func DecaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak, peakIdx := math.Inf(-1), 0
	for i, v := range env {
		if db := linToDB(v); db > peak {
			peak, peakIdx = db, i
		}
	}
	start := peakIdx + 1
	if start >= len(env)-4 {
		return math.NaN()
	}
	end := len(env)
	for i := start; i < len(env); i++ {
		if linToDB(env[i]) < peak-60 {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := linToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i, v := range x {
		if math.Abs(v) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	r := rms1(x)
	if r <= 1e-12 {
		return append([]float64(nil), x...)
	}
	g := target / r
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * g
	}
	return out
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
