package main

import (
	"encoding/binary"
	"math"

	"github.com/cwbudde/algo-layerpiano/graph"
)

// renderReader pulls interleaved float32 frames from the render context
// for an oto player.
type renderReader struct {
	ctx *graph.Context
	buf []float32
}

func (r *renderReader) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if cap(r.buf) < frames*2 {
		r.buf = make([]float32, frames*2)
	}
	buf := r.buf[:frames*2]
	r.ctx.Render(buf)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	clear(p[frames*8:])
	return len(p), nil
}
