// Package fmdemod implements the wideband FM broadcast decoder: IF AGC,
// multipath equalization, phase discrimination, pilot tracking, and
// mono/stereo separation with deemphasis.
//
// Grounded on FmDecode.cpp's FmDecoder::process/demod_stereo/mono_to_left_right
// /stereo_to_left_right/zero_to_left_right, composed from the package's own
// agc, multipath, discriminator and pll components the way demod_stage.go
// composes the teacher's squelch/AGC/resampler stages into one decode call.
package fmdemod

import (
	"github.com/kb9vrm/fmradion-go/internal/agc"
	"github.com/kb9vrm/fmradion-go/internal/discriminator"
	"github.com/kb9vrm/fmradion-go/internal/dsp"
	"github.com/kb9vrm/fmradion-go/internal/multipath"
	"github.com/kb9vrm/fmradion-go/internal/pll"
)

// StereoDetectPolicy selects how the decoder decides a stereo pilot is
// present. PolicyForceDetected (the zero value, and the original decoder's
// literal behavior) always reports stereo once the pilot PLL has run, with
// the PLL's real lock state still available separately via PilotLocked.
// PolicyFollowLock instead reports stereo only while the pilot PLL is
// actually locked.
type StereoDetectPolicy int

const (
	// PolicyForceDetected always reports stereo, matching the original
	// decoder's behavior of assuming a stereo subcarrier is always present.
	PolicyForceDetected StereoDetectPolicy = iota
	// PolicyFollowLock reports stereo only when the pilot PLL is locked.
	PolicyFollowLock
)

const (
	deemphasisUS   = 75e-6
	deemphasisEU   = 50e-6
	stereoGain     = 1.017 // empirically tuned L-R gain applied before matrixing.
	pilotBandwidth = 0.001 // normalized to the IF sample rate.
)

// Config configures a Decoder.
type Config struct {
	SampleRate      float64
	FreqDeviation   float64
	DeemphasisSecs  float64
	StereoPolicy    StereoDetectPolicy
	PilotShift      bool
	EnableAGC       bool
	EnableEqualizer bool
	EqualizerTaps   int // defaults to 41 when zero.
}

// Decoder holds per-stream state for the full FM decode chain.
type Decoder struct {
	cfg Config

	agc     *agc.AGC
	eq      *multipath.Equalizer
	disc    *discriminator.Discriminator
	pilotLO *pll.State

	pilotFilter *dsp.ComplexFIR
	deemphL     *dsp.Deemphasis
	deemphR     *dsp.Deemphasis

	stereoDetected bool
}

// New builds a decoder for the given configuration.
func New(cfg Config) *Decoder {
	if cfg.DeemphasisSecs == 0 {
		cfg.DeemphasisSecs = deemphasisUS
	}
	if cfg.EqualizerTaps == 0 {
		cfg.EqualizerTaps = 41
	}
	d := &Decoder{
		cfg:     cfg,
		agc:     agc.New(),
		eq:      multipath.New(cfg.EqualizerTaps, 0.02),
		disc:    discriminator.New(cfg.FreqDeviation, cfg.SampleRate, true),
		pilotLO: pll.New(cfg.SampleRate, pilotBandwidth, 40),
		deemphL: dsp.NewDeemphasis(cfg.DeemphasisSecs, cfg.SampleRate),
		deemphR: dsp.NewDeemphasis(cfg.DeemphasisSecs, cfg.SampleRate),
	}
	pilotTaps := dsp.DesignBandPass(63, 2000.0/cfg.SampleRate, 19000.0/cfg.SampleRate)
	d.pilotFilter = dsp.NewComplexFIR(pilotTaps)
	return d
}

// Result is the output of one Decoder.Process call.
type Result struct {
	Left, Right    []float64
	StereoDetected bool
	PilotLocked    bool
	// PilotFreqHz is the pilot PLL's current frequency estimate, in Hz,
	// useful only as display-side PPM telemetry (see internal/dsp.MovingAverage).
	PilotFreqHz float64
	// EqualizerError and EqualizerReferenceLevel are the multipath
	// equalizer's most recently evaluated block-level telemetry (zero when
	// EnableEqualizer is false). EqualizerCoefficients is a defensive copy
	// of its current tap vector, nil when disabled.
	EqualizerError          float64
	EqualizerReferenceLevel float64
	EqualizerCoefficients   []complex128
}

// Process decodes one block of IF samples into left/right audio samples at
// the decoder's configured sample rate (no audio-rate resampling is applied
// here; that is the caller's/pipeline's responsibility per internal/resample).
func (d *Decoder) Process(iq []complex128) Result {
	if d.cfg.EnableAGC {
		d.agc.Process(iq)
	}
	if d.cfg.EnableEqualizer {
		iq = d.eq.Process(iq)
	}

	baseband := d.disc.Process(iq)

	pilotBand := d.pilotFilter.Process(toComplex(baseband))
	pilotReal := toReal(pilotBand)
	cos38, sin38 := d.pilotLO.Process(pilotReal)

	d.stereoDetected = d.computeStereoDetected()

	left := make([]float64, len(baseband))
	right := make([]float64, len(baseband))

	if d.stereoDetected {
		for i, m := range baseband {
			var sub float64
			if d.cfg.PilotShift {
				// Monitoring mode: L-R duplicated on both channels.
				sub = 2 * m * sin38[i]
				left[i], right[i] = sub, sub
				continue
			}
			sub = 2 * m * cos38[i]
			l := m + stereoGain*sub
			r := m - stereoGain*sub
			left[i] = l
			right[i] = r
		}
	} else if !d.cfg.PilotShift {
		copy(left, baseband)
		copy(right, baseband)
	}

	d.deemphL.Filter(left)
	d.deemphR.Filter(right)

	result := Result{
		Left:           left,
		Right:          right,
		StereoDetected: d.stereoDetected,
		PilotLocked:    d.pilotLO.Locked(),
		PilotFreqHz:    d.pilotLO.Freq(),
	}
	if d.cfg.EnableEqualizer {
		result.EqualizerError = d.eq.Error()
		result.EqualizerReferenceLevel = d.eq.ReferenceLevel()
		result.EqualizerCoefficients = d.eq.Coefficients()
	}
	return result
}

// DrainPPS removes and returns sample indices, relative to this decoder's
// creation, at which a pilot PPS boundary fired while the loop was locked.
func (d *Decoder) DrainPPS() []int {
	return d.pilotLO.DrainPPS()
}

func (d *Decoder) computeStereoDetected() bool {
	switch d.cfg.StereoPolicy {
	case PolicyFollowLock:
		return d.pilotLO.Locked()
	default:
		return true
	}
}

func toComplex(real []float64) []complex128 {
	out := make([]complex128, len(real))
	for i, v := range real {
		out[i] = complex(v, 0)
	}
	return out
}

func toReal(c []complex128) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}
