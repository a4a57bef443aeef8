// Package agc implements automatic gain control for both the complex IF
// stream (AGC, applied before demodulation so downstream squelch/demodulator
// gain assumptions hold regardless of tuner gain or path loss) and
// demodulated real-valued audio (AudioAGC, a faster, lower-ceiling variant
// used by the AM-family decode chain).
//
// Grounded on the squelch/AGC bookkeeping in demod_stage.go's demodState,
// generalized into standalone, reusable components.
package agc

import "math"

const (
	minGain  = 1.0
	maxGain  = 10000.0
	adaptRate = 0.001
	target    = 1.0
)

// AGC tracks a single gain value, slowly adapted toward a target magnitude.
type AGC struct {
	gain float64
}

// New returns an AGC starting at unity gain.
func New() *AGC {
	return &AGC{gain: minGain}
}

// Gain returns the current gain value.
func (a *AGC) Gain() float64 {
	return a.gain
}

// Process scales samples in place by the current gain, adapting the gain
// toward target magnitude after each sample.
func (a *AGC) Process(samples []complex128) {
	for i, s := range samples {
		mag := cmplxAbs(s)
		if mag > 1e-12 {
			err := target - mag*a.gain
			a.gain += adaptRate * err * a.gain
		}
		if a.gain < minGain {
			a.gain = minGain
		}
		if a.gain > maxGain {
			a.gain = maxGain
		}
		samples[i] = s * complex(a.gain, 0)
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

const (
	audioMinGain   = 1.0
	audioMaxGain   = 5.0 // 5x amplitude (~14 dB) ceiling, per spec.md's audio-side AGC contract.
	audioAdaptRate = 0.01
	audioTarget    = 1.0
)

// AudioAGC is a fast-attack gain control applied to demodulated audio
// (real-valued, not complex IF), used by the AM/DSB/USB/LSB/CW chain where
// the envelope/product detector output has no upstream IF AGC benefit once
// it reaches the audio domain. Same peak-tracking shape as AGC, with a
// higher adaptation rate and a much lower gain ceiling.
type AudioAGC struct {
	gain float64
}

// NewAudioAGC returns an AudioAGC starting at unity gain.
func NewAudioAGC() *AudioAGC {
	return &AudioAGC{gain: audioMinGain}
}

// Gain returns the current gain value.
func (a *AudioAGC) Gain() float64 {
	return a.gain
}

// Process scales samples in place by the current gain, adapting the gain
// toward unit peak magnitude after each sample.
func (a *AudioAGC) Process(samples []float64) {
	for i, x := range samples {
		mag := math.Abs(x)
		if mag > 1e-12 {
			err := audioTarget - mag*a.gain
			a.gain += audioAdaptRate * err
		}
		if a.gain < audioMinGain {
			a.gain = audioMinGain
		}
		if a.gain > audioMaxGain {
			a.gain = audioMaxGain
		}
		samples[i] = x * a.gain
	}
}
