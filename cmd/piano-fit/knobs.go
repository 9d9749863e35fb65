package main

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-layerpiano/internal/fitcommon"
	"github.com/cwbudde/algo-layerpiano/piano"
)

type knobDef struct {
	Name string
	Min  float64
	Max  float64
}

type candidate struct {
	Vals []float64
}

var validGroups = []string{"envelope", "filter", "mix"}

// parseOptimizeGroups parses a comma-separated string of group names.
func parseOptimizeGroups(raw string) (map[string]bool, error) {
	groups := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		ok := false
		for _, g := range validGroups {
			ok = ok || g == s
		}
		if !ok {
			return nil, fmt.Errorf("unknown optimize group %q (valid: %s)", s, strings.Join(validGroups, ", "))
		}
		groups[s] = true
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no optimize groups specified")
	}
	return groups, nil
}

func initCandidate(base *piano.Params, groups map[string]bool) ([]knobDef, candidate) {
	defs := make([]knobDef, 0, 12)
	vals := make([]float64, 0, 12)
	addKnob := func(def knobDef, val float64) {
		defs = append(defs, def)
		vals = append(vals, val)
	}

	if groups["envelope"] {
		addKnob(knobDef{Name: "attack", Min: 0.001, Max: 0.2}, base.Envelope.Attack)
		addKnob(knobDef{Name: "decay", Min: 0.02, Max: 3.0}, base.Envelope.Decay)
		addKnob(knobDef{Name: "sustain", Min: 0.0, Max: 1.0}, base.Envelope.Sustain)
		addKnob(knobDef{Name: "release", Min: 0.05, Max: 3.0}, base.Envelope.Release)
	}
	if groups["filter"] {
		addKnob(knobDef{Name: "filter_base", Min: 500, Max: 18000}, base.FilterSweep.BaseFreq)
		addKnob(knobDef{Name: "filter_end", Min: 80, Max: 6000}, base.FilterSweep.EndFreq)
		addKnob(knobDef{Name: "filter_q", Min: 0.3, Max: 6.0}, base.FilterSweep.Q)
	}
	if groups["mix"] {
		addKnob(knobDef{Name: "output_gain", Min: 0.2, Max: 2.5}, base.OutputGain)
		addKnob(knobDef{Name: "compressor_threshold", Min: -48, Max: 0}, base.Compressor.ThresholdDB)
		addKnob(knobDef{Name: "stereo_width", Min: 0, Max: 2}, base.Stereo.Width)
		if base.Body.Enabled {
			addKnob(knobDef{Name: "body_wet", Min: 0, Max: 1}, base.Body.Wet)
		}
	}

	for i := range vals {
		vals[i] = fitcommon.Clamp(vals[i], defs[i].Min, defs[i].Max)
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate returns a copy of base with the candidate's knob values.
func applyCandidate(base *piano.Params, defs []knobDef, c candidate) (*piano.Params, error) {
	params := cloneParams(base)
	for i, def := range defs {
		v := c.Vals[i]
		switch def.Name {
		case "attack":
			params.Envelope.Attack = v
		case "decay":
			params.Envelope.Decay = v
		case "sustain":
			params.Envelope.Sustain = v
		case "release":
			params.Envelope.Release = v
		case "filter_base":
			params.FilterSweep.BaseFreq = v
		case "filter_end":
			params.FilterSweep.EndFreq = v
		case "filter_q":
			params.FilterSweep.Q = v
		case "output_gain":
			params.OutputGain = v
		case "compressor_threshold":
			params.Compressor.ThresholdDB = v
		case "stereo_width":
			params.Stereo.Width = v
		case "body_wet":
			params.Body.Wet = v
		default:
			return nil, fmt.Errorf("unknown knob %q", def.Name)
		}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = fitcommon.Clamp(pos[i], 0, 1)
		}
		vals[i] = defs[i].Min + x*(defs[i].Max-defs[i].Min)
	}
	return candidate{Vals: vals}
}

func cloneParams(src *piano.Params) *piano.Params {
	if src == nil {
		return piano.NewDefaultParams()
	}
	d := *src
	return &d
}

func cloneCandidate(c candidate) candidate {
	return candidate{Vals: append([]float64(nil), c.Vals...)}
}
