// Package resample implements fractional-ratio resampling for both the
// complex IF path and the real audio path, sharing a single windowed-sinc
// polyphase core.
//
// Grounded on teabreakninja-go-iq-decoder/internal/dsp.Resample, generalized
// from a fixed integer ratio to an arbitrary fractional ratio by carrying a
// fractional phase accumulator across blocks, and specialized for both
// complex128 IF samples and float64 audio samples.
package resample

import "math"

const filterTapsPerPhase = 16

// kernel builds a windowed-sinc interpolation kernel long enough to cover
// filterTapsPerPhase taps on each side of the lower of the two rates, so
// both upsampling and downsampling are adequately band-limited.
func kernel(ratio float64) (taps []float64, tapsPerSide int) {
	cutoff := 0.5
	if ratio < 1 {
		cutoff = 0.5 * ratio
	}
	tapsPerSide = filterTapsPerPhase
	n := 2*tapsPerSide + 1
	taps = make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i - tapsPerSide)
		var s float64
		if x == 0 {
			s = 2 * cutoff
		} else {
			s = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		taps[i] = s * w
	}
	return taps, tapsPerSide
}

// Real resamples a float64 stream by an arbitrary ratio (outputRate /
// inputRate), maintaining phase and history across Process calls.
type Real struct {
	ratio   float64
	taps    []float64
	side    int
	history []float64
	phase   float64
}

// NewReal builds a resampler for the given ratio.
func NewReal(ratio float64) *Real {
	taps, side := kernel(ratio)
	return &Real{
		ratio:   ratio,
		taps:    taps,
		side:    side,
		history: make([]float64, side*2+1),
	}
}

// Process consumes input and returns the resampled output. Output length
// varies with input length and accumulated fractional phase; callers should
// not assume a fixed block-size relationship.
func (r *Real) Process(input []float64) []float64 {
	buf := append(append([]float64(nil), r.history...), input...)
	histLen := len(r.history)

	var out []float64
	pos := r.phase
	step := 1.0 / r.ratio

	for {
		// The kernel is centered r.side samples behind pos, so the last
		// r.side input samples of a block are still used, via the history,
		// on the next call.
		srcIdx := histLen - r.side + int(math.Floor(pos))
		if srcIdx+r.side >= len(buf) {
			break
		}
		base := srcIdx - r.side
		if base < 0 {
			break
		}

		var acc float64
		for i, tap := range r.taps {
			sampleIdx := base + i
			if sampleIdx < 0 || sampleIdx >= len(buf) {
				continue
			}
			acc += buf[sampleIdx] * tap
		}
		out = append(out, acc)
		pos += step
	}

	consumed := len(input)
	r.phase = pos - float64(consumed)

	keep := len(r.history)
	start := histLen + consumed - keep
	if start < 0 {
		start = 0
	}
	end := histLen + consumed
	if end > len(buf) {
		end = len(buf)
	}
	if end-start < keep {
		pad := make([]float64, keep-(end-start))
		r.history = append(pad, buf[start:end]...)
	} else {
		r.history = append([]float64(nil), buf[end-keep:end]...)
	}

	return out
}

// Complex is the complex128-domain counterpart of Real, for resampling the
// IF stream to the demodulator's internal rate.
type Complex struct {
	ratio   float64
	taps    []float64
	side    int
	history []complex128
	phase   float64
}

// NewComplex builds a resampler for the given ratio.
func NewComplex(ratio float64) *Complex {
	taps, side := kernel(ratio)
	return &Complex{
		ratio:   ratio,
		taps:    taps,
		side:    side,
		history: make([]complex128, side*2+1),
	}
}

// Process consumes input and returns the resampled output.
func (r *Complex) Process(input []complex128) []complex128 {
	buf := append(append([]complex128(nil), r.history...), input...)
	histLen := len(r.history)

	var out []complex128
	pos := r.phase
	step := 1.0 / r.ratio

	for {
		// The kernel is centered r.side samples behind pos, so the last
		// r.side input samples of a block are still used, via the history,
		// on the next call.
		srcIdx := histLen - r.side + int(math.Floor(pos))
		if srcIdx+r.side >= len(buf) {
			break
		}
		base := srcIdx - r.side
		if base < 0 {
			break
		}
		var acc complex128
		for i, tap := range r.taps {
			sampleIdx := base + i
			if sampleIdx < 0 || sampleIdx >= len(buf) {
				continue
			}
			acc += buf[sampleIdx] * complex(tap, 0)
		}
		out = append(out, acc)
		pos += step
	}

	consumed := len(input)
	r.phase = pos - float64(consumed)

	keep := len(r.history)
	start := histLen + consumed - keep
	if start < 0 {
		start = 0
	}
	end := histLen + consumed
	if end > len(buf) {
		end = len(buf)
	}
	if end-start < keep {
		pad := make([]complex128, keep-(end-start))
		r.history = append(pad, buf[start:end]...)
	} else {
		r.history = append([]complex128(nil), buf[end-keep:end]...)
	}

	return out
}
