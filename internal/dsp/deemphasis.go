package dsp

import "math"

// Deemphasis is a single-pole RC low-pass filter applied after FM
// discrimination to undo the transmitter's pre-emphasis curve.
//
// Grounded on teabreakninja-go-iq-decoder/internal/dsp.Deemphasis.
type Deemphasis struct {
	alpha float64
	prev  float64
}

// NewDeemphasis builds a deemphasis filter for the given time constant
// (seconds, e.g. 75e-6 for US FM broadcast) at sampleRate.
func NewDeemphasis(timeConstant, sampleRate float64) *Deemphasis {
	dt := 1.0 / sampleRate
	alpha := dt / (timeConstant + dt)
	return &Deemphasis{alpha: alpha}
}

// Filter applies the filter in place across a block, carrying state between
// calls.
func (d *Deemphasis) Filter(samples []float64) {
	for i, x := range samples {
		d.prev += d.alpha * (x - d.prev)
		samples[i] = d.prev
	}
}

// Reset clears the filter's memory, e.g. on a squelch-open transition.
func (d *Deemphasis) Reset() {
	d.prev = 0
}

// FastAtan2 is a low-cost approximation of math.Atan2, used in the phase
// discriminator and pilot PLL hot paths where exact rounding does not
// matter but call overhead does.
//
// Grounded on the fast_atan2 helper in FmDecode.cpp.
func FastAtan2(y, x float64) float64 {
	if x == 0 && y == 0 {
		return 0
	}
	abs_y := math.Abs(y) + 1.0e-10
	var angle float64
	if x >= 0 {
		r := (x - abs_y) / (x + abs_y)
		angle = 0.1963*r*r*r - 0.9817*r + math.Pi/4
	} else {
		r := (x + abs_y) / (abs_y - x)
		angle = 0.1963*r*r*r - 0.9817*r + 3*math.Pi/4
	}
	if y < 0 {
		return -angle
	}
	return angle
}
