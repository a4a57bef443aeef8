// Package dsp holds the shared, stateless-where-possible signal processing
// building blocks used by every demodulator: FIR filters, biquad sections,
// deemphasis, DC blocking, a fast atan2 approximation, and a display-only
// moving average.
package dsp

import "math"

// DesignLowPass creates a windowed-sinc low-pass FIR filter. cutoff is
// normalized to the sample rate, in cycles per sample (0.5 = sample_rate/2).
//
// Grounded on teabreakninja-go-iq-decoder/internal/dsp.DesignFIRLowPass.
func DesignLowPass(numTaps int, cutoff float64) []float64 {
	taps := make([]float64, numTaps)
	m := float64(numTaps - 1)
	fc := cutoff * 2
	for n := 0; n < numTaps; n++ {
		x := float64(n) - m/2
		if x == 0 {
			taps[n] = fc
		} else {
			taps[n] = fc * math.Sin(math.Pi*fc*x) / (math.Pi * fc * x)
		}
		taps[n] *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/m)
	}
	sum := 0.0
	for _, v := range taps {
		sum += v
	}
	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}
	return taps
}

// DesignBandPass creates a complex-valued band-pass FIR by modulating a
// real low-pass prototype of half the requested bandwidth up to the given
// normalized center frequency. Used by internal/amdemod to carve out
// AM/DSB (centered on 0), USB (positive shift) and LSB (negative shift)
// passbands from the same low-pass design routine.
func DesignBandPass(numTaps int, halfBandwidth, centerFreq float64) []complex128 {
	proto := DesignLowPass(numTaps, halfBandwidth)
	out := make([]complex128, numTaps)
	for n, v := range proto {
		theta := 2 * math.Pi * centerFreq * float64(n)
		out[n] = complex(v*math.Cos(theta), v*math.Sin(theta))
	}
	return out
}

// RealFIR is a stateful, block-based real FIR filter: tail state carries
// across calls to Process so blocks are phase-continuous.
//
// Grounded on teabreakninja-go-iq-decoder/internal/dsp.FIRFilter.
type RealFIR struct {
	taps  []float64
	state []float64
}

// NewRealFIR builds a filter from the given taps, with zeroed history.
func NewRealFIR(taps []float64) *RealFIR {
	return &RealFIR{taps: taps, state: make([]float64, len(taps)-1)}
}

// Process filters input and returns exactly len(input) output samples,
// maintaining the filter's tail state across calls.
func (f *RealFIR) Process(input []float64) []float64 {
	if len(f.taps) == 0 {
		out := make([]float64, len(input))
		copy(out, input)
		return out
	}

	buf := make([]float64, len(f.state)+len(input))
	copy(buf, f.state)
	copy(buf[len(f.state):], input)

	out := make([]float64, len(input))
	for i := range out {
		var acc float64
		for j, tap := range f.taps {
			acc += buf[i+j] * tap
		}
		out[i] = acc
	}

	tail := len(f.taps) - 1
	if tail > 0 {
		f.state = append(f.state[:0], buf[len(buf)-tail:]...)
	}
	return out
}

// ComplexFIR is the complex-valued counterpart of RealFIR, used for IF
// band-pass filtering (AM/DSB/USB/LSB/CW and NBFM front ends).
type ComplexFIR struct {
	taps  []complex128
	state []complex128
}

// NewComplexFIR builds a complex filter from the given taps.
func NewComplexFIR(taps []complex128) *ComplexFIR {
	return &ComplexFIR{taps: taps, state: make([]complex128, len(taps)-1)}
}

// Process filters input and returns exactly len(input) output samples.
func (f *ComplexFIR) Process(input []complex128) []complex128 {
	if len(f.taps) == 0 {
		out := make([]complex128, len(input))
		copy(out, input)
		return out
	}

	buf := make([]complex128, len(f.state)+len(input))
	copy(buf, f.state)
	copy(buf[len(f.state):], input)

	out := make([]complex128, len(input))
	for i := range out {
		var acc complex128
		for j, tap := range f.taps {
			acc += buf[i+j] * tap
		}
		out[i] = acc
	}

	tail := len(f.taps) - 1
	if tail > 0 {
		f.state = append(f.state[:0], buf[len(buf)-tail:]...)
	}
	return out
}
