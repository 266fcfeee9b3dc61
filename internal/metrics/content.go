package metrics

import "gonum.org/v1/gonum/floats"

// HeatContent tracks the column-integrated heat sum(capacity*T*width) in
// J/m^2 relative to its first sample.
type HeatContent struct {
	width   []float64
	buf     []float64
	initial float64
	last    float64
	samples int
}

func NewHeatContent(width []float64) *HeatContent {
	return &HeatContent{width: width, buf: make([]float64, len(width))}
}

func (h *HeatContent) Observe(capacity, temperature []float64) {
	floats.MulTo(h.buf, capacity, temperature)
	v := floats.Dot(h.buf, h.width)
	if h.samples == 0 {
		h.initial = v
	}
	h.last = v
	h.samples++
}

// Value is the change in heat content since the first sample.
func (h *HeatContent) Value() float64 {
	return h.last - h.initial
}

func (h *HeatContent) Reset() {
	h.initial, h.last, h.samples = 0, 0, 0
}
