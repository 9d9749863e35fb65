package dsp

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Compressor is a stereo-linked feed-forward compressor with a soft knee.
type Compressor struct {
	thresholdDB float64
	kneeDB      float64
	ratio       float64
	makeup      float64

	attackCoef  float64
	releaseCoef float64

	// smoothed gain reduction in dB, always <= 0
	reductionDB float64
}

// NewCompressor creates a compressor. Times are in seconds.
func NewCompressor(sampleRate, thresholdDB, kneeDB, ratio, attack, release, makeupDB float64) *Compressor {
	if ratio < 1 {
		ratio = 1
	}
	if kneeDB < 0 {
		kneeDB = 0
	}
	return &Compressor{
		thresholdDB: thresholdDB,
		kneeDB:      kneeDB,
		ratio:       ratio,
		makeup:      DBToGain(makeupDB),
		attackCoef:  timeCoef(attack, sampleRate),
		releaseCoef: timeCoef(release, sampleRate),
	}
}

func timeCoef(seconds, sampleRate float64) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (seconds * sampleRate))
}

// StaticCurve returns the output level in dB for a steady input level.
func (c *Compressor) StaticCurve(inDB float64) float64 {
	over := inDB - c.thresholdDB
	switch {
	case 2*over < -c.kneeDB:
		return inDB
	case c.kneeDB > 0 && 2*math.Abs(over) <= c.kneeDB:
		x := over + c.kneeDB/2
		return inDB + (1/c.ratio-1)*x*x/(2*c.kneeDB)
	default:
		return c.thresholdDB + over/c.ratio
	}
}

// ProcessStereo compresses one frame using the louder channel as detector.
func (c *Compressor) ProcessStereo(l, r float64) (float64, float64) {
	level := math.Max(math.Abs(l), math.Abs(r))
	inDB := GainToDB(level)
	target := c.StaticCurve(inDB) - inDB

	coef := c.releaseCoef
	if target < c.reductionDB {
		coef = c.attackCoef
	}
	c.reductionDB = dspcore.FlushDenormals(target + coef*(c.reductionDB-target))

	g := DBToGain(c.reductionDB) * c.makeup
	return l * g, r * g
}

// ReductionDB reports the current smoothed gain reduction.
func (c *Compressor) ReductionDB() float64 {
	return c.reductionDB
}

func (c *Compressor) Reset() {
	c.reductionDB = 0
}
