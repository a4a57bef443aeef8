// Package multipath implements an adaptive complex FIR equalizer that
// suppresses multipath-induced reflections in the IF signal ahead of FM
// demodulation.
//
// Grounded on the adaptive-filter idiom in teabreakninja-go-iq-decoder's
// stateful FIRFilter (tail state carried across blocks) combined with an
// NLMS coefficient update, the standard approach for blind multipath
// equalization in softfm-derived decoders. The block-level error/reference
// evaluation and reset-to-input fallback follow FmDecode.cpp's process():
// get_error()/get_reference_level() are read once per block, and a bad
// block's filtered output is discarded in favor of the unfiltered input.
package multipath

import "math"

const (
	startupGraceBlocks = 100
	coefficientFloor   = 1e-12

	// envelopeSmoothing is the single-pole low-pass coefficient used to track
	// the input envelope that the reset check compares against referenceFloor.
	envelopeSmoothing = 0.01
	// referenceFloor mirrors FmDecode.cpp's reference_level_error threshold:
	// a reference level below this is treated as a diverged/silent filter.
	referenceFloor = 0.01
)

// Equalizer is a center-tap-initialized, NLMS-adapted complex FIR filter.
type Equalizer struct {
	taps     []complex128
	history  []complex128
	center   int
	mu       float64
	blockNum int

	smoothedEnvelope float64

	// currentError and currentReferenceLevel are this equalizer's most
	// recently evaluated block-level telemetry, read by Error and
	// ReferenceLevel.
	currentError          float64
	currentReferenceLevel float64
}

// New returns an equalizer with numTaps (must be odd) coefficients,
// initialized to a pure center tap (a pass-through delayed by numTaps/2
// samples) and an NLMS step size mu.
func New(numTaps int, mu float64) *Equalizer {
	if numTaps%2 == 0 {
		numTaps++
	}
	taps := make([]complex128, numTaps)
	center := numTaps / 2
	taps[center] = 1
	return &Equalizer{
		taps:    taps,
		history: make([]complex128, numTaps-1),
		center:  center,
		mu:      mu,
	}
}

// Error returns the most recently evaluated block's NLMS error level (RMS
// magnitude of reference-minus-filtered-output across the block).
func (e *Equalizer) Error() float64 {
	return e.currentError
}

// ReferenceLevel returns the most recently evaluated block's smoothed input
// envelope level, the reference the reset decision compares against
// referenceFloor.
func (e *Equalizer) ReferenceLevel() float64 {
	return e.currentReferenceLevel
}

// Coefficients returns a defensive copy of the current tap vector.
func (e *Equalizer) Coefficients() []complex128 {
	out := make([]complex128, len(e.taps))
	copy(out, e.taps)
	return out
}

// Process filters input through the current equalizer taps and adapts them
// toward minimizing error against a reference (typically the same signal
// delayed through the center tap, per standard decision-directed NLMS).
// During the startup grace period coefficients are held fixed so the filter
// does not diverge before the AGC and carrier loops have settled.
//
// Once per block (not per sample), the current error and reference level
// are evaluated; after the grace period, if the error is non-finite or the reference level has
// collapsed below referenceFloor, the coefficients are reinitialized to a
// center tap and this block's output falls back to the unfiltered input,
// matching FmDecode.cpp's process().
func (e *Equalizer) Process(input []complex128) []complex128 {
	e.blockNum++
	adapt := e.blockNum > startupGraceBlocks

	buf := append(append([]complex128(nil), e.history...), input...)
	histLen := len(e.history)
	n := len(e.taps)

	out := make([]complex128, len(input))
	var errEnergy, refEnergy float64

	for i := range input {
		base := histLen + i - (n - 1)
		var acc complex128
		var energy float64
		for j, tap := range e.taps {
			idx := base + j
			var s complex128
			if idx >= 0 && idx < len(buf) {
				s = buf[idx]
			}
			acc += tap * s
			energy += real(s)*real(s) + imag(s)*imag(s)
		}
		out[i] = acc

		centerIdx := base + e.center
		var centered complex128
		if centerIdx >= 0 && centerIdx < len(buf) {
			centered = buf[centerIdx]
		}
		mag := math.Hypot(real(centered), imag(centered))
		e.smoothedEnvelope += envelopeSmoothing * (mag - e.smoothedEnvelope)
		refEnergy += e.smoothedEnvelope * e.smoothedEnvelope

		errSignal := centered - acc
		errEnergy += real(errSignal)*real(errSignal) + imag(errSignal)*imag(errSignal)

		if adapt && energy > coefficientFloor {
			step := complex(e.mu/energy, 0)
			for j := range e.taps {
				idx := base + j
				var s complex128
				if idx >= 0 && idx < len(buf) {
					s = buf[idx]
				}
				e.taps[j] += step * errSignal * cmplxConj(s)
			}
		}
	}

	if len(input) > 0 {
		e.currentError = math.Sqrt(errEnergy / float64(len(input)))
		e.currentReferenceLevel = math.Sqrt(refEnergy / float64(len(input)))
	}

	tail := n - 1
	if tail > 0 {
		e.history = append(e.history[:0], buf[len(buf)-tail:]...)
	}

	if adapt {
		abnormalError := math.IsNaN(e.currentError) || math.IsInf(e.currentError, 0)
		referenceLevelError := math.Abs(e.currentReferenceLevel) < referenceFloor
		if abnormalError || referenceLevelError {
			e.resetCoefficients()
			copy(out, input)
		}
	}

	return out
}

// resetCoefficients reinitializes the filter to a pure center tap, discarding
// whatever it had adapted toward.
func (e *Equalizer) resetCoefficients() {
	for i := range e.taps {
		e.taps[i] = 0
	}
	e.taps[e.center] = 1
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}
