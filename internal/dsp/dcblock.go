package dsp

// DCBlocker is a single-pole IIR high-pass filter (y[n] = x[n] - x[n-1] +
// pole*y[n-1]) that removes DC offset without the phase distortion a
// higher-order filter would introduce. Used on the AM envelope and on the
// NBFM discriminator output where a carrier-frequency offset would
// otherwise show up as an audio DC bias.
type DCBlocker struct {
	pole   float64
	prevX  float64
	prevY  float64
}

// NewDCBlocker builds a blocker with the given pole, typically close to but
// below 1 (e.g. 0.999).
func NewDCBlocker(pole float64) *DCBlocker {
	return &DCBlocker{pole: pole}
}

// Filter applies the filter in place across a block.
func (d *DCBlocker) Filter(samples []float64) {
	for i, x := range samples {
		y := x - d.prevX + d.pole*d.prevY
		d.prevX = x
		d.prevY = y
		samples[i] = y
	}
}

// Reset clears the filter's memory.
func (d *DCBlocker) Reset() {
	d.prevX, d.prevY = 0, 0
}
