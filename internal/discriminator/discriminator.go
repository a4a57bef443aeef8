// Package discriminator implements the FM phase discriminator: the
// conjugate-product angle step that turns a complex IF stream into an
// instantaneous-frequency (audio baseband) signal.
//
// Grounded on teabreakninja-go-iq-decoder/internal/dsp.Demodulator, which
// carries the previous sample across Process calls so the discriminator is
// continuous across block boundaries.
package discriminator

import (
	"math"

	"github.com/kb9vrm/fmradion-go/internal/dsp"
)

// Discriminator computes instantaneous frequency from a complex IF stream,
// normalized so a full-scale frequency deviation maps to +/-1.0.
type Discriminator struct {
	prev     complex128
	gain     float64
	useFast  bool
}

// New returns a discriminator. freqDev is the full-scale deviation in Hz
// and sampleRate the IF sample rate in Hz; useFast selects dsp.FastAtan2
// over math.Atan2 for the angle computation.
func New(freqDev, sampleRate float64, useFast bool) *Discriminator {
	return &Discriminator{
		prev:    1,
		gain:    sampleRate / (2 * math.Pi * freqDev),
		useFast: useFast,
	}
}

// Process converts IF samples to normalized instantaneous frequency.
func (d *Discriminator) Process(input []complex128) []float64 {
	out := make([]float64, len(input))
	for i, s := range input {
		prod := s * cmplxConj(d.prev)
		var angle float64
		if d.useFast {
			angle = dsp.FastAtan2(imag(prod), real(prod))
		} else {
			angle = math.Atan2(imag(prod), real(prod))
		}
		out[i] = angle * d.gain
		d.prev = s
	}
	return out
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}
