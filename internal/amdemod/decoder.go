// Package amdemod implements envelope and product detection for AM, DSB,
// USB, LSB and CW modes.
//
// Grounded on hz.tools-go-am/demod.go's DemodulatorConfig/Demodulate
// constructor shape (a mode-parameterized config producing a single
// decode entry point), reimplemented on this module's own complex64 IF
// pipeline rather than the hz.tools/* stack. IF AGC, audio deemphasis and
// audio AGC reuse internal/agc and internal/dsp exactly as internal/fmdemod
// does, per spec.md's AM-family processing order.
package amdemod

import (
	"fmt"
	"math"

	"github.com/kb9vrm/fmradion-go/internal/agc"
	"github.com/kb9vrm/fmradion-go/internal/dsp"
)

const (
	audioDeemphasisSecs = 100e-6
)

// Mode selects the demodulation algorithm.
type Mode int

const (
	AM Mode = iota
	DSB
	USB
	LSB
	CW
)

func (m Mode) String() string {
	switch m {
	case AM:
		return "AM"
	case DSB:
		return "DSB"
	case USB:
		return "USB"
	case LSB:
		return "LSB"
	case CW:
		return "CW"
	default:
		return "unknown"
	}
}

// Config configures a Decoder.
type Config struct {
	Mode          Mode
	SampleRate    float64
	Bandwidth     float64 // passband half-width in Hz: AM/DSB pass +/-Bandwidth, USB/CW 0..+Bandwidth, LSB -Bandwidth..0.
	BeatFreqHz    float64 // CW beat-frequency offset.
}

// Decoder holds per-stream AM-family decode state.
type Decoder struct {
	cfg Config

	ifAGC    *agc.AGC
	bandpass *dsp.ComplexFIR
	dcBlock  *dsp.DCBlocker
	deemph   *dsp.Deemphasis
	audioAGC *agc.AudioAGC

	cwPhase float64
}

// New builds a decoder for the given configuration. An unrecognized mode
// returns an error, mirroring hz.tools-go-am's constructor validation.
func New(cfg Config) (*Decoder, error) {
	d := &Decoder{
		cfg:      cfg,
		ifAGC:    agc.New(),
		dcBlock:  dsp.NewDCBlocker(0.999),
		deemph:   dsp.NewDeemphasis(audioDeemphasisSecs, cfg.SampleRate),
		audioAGC: agc.NewAudioAGC(),
	}

	switch cfg.Mode {
	case AM, DSB:
		taps := dsp.DesignBandPass(63, cfg.Bandwidth/cfg.SampleRate, 0)
		d.bandpass = dsp.NewComplexFIR(taps)
	case USB, CW:
		center := cfg.Bandwidth / (2 * cfg.SampleRate)
		taps := dsp.DesignBandPass(63, cfg.Bandwidth/(2*cfg.SampleRate), center)
		d.bandpass = dsp.NewComplexFIR(taps)
	case LSB:
		center := -cfg.Bandwidth / (2 * cfg.SampleRate)
		taps := dsp.DesignBandPass(63, cfg.Bandwidth/(2*cfg.SampleRate), center)
		d.bandpass = dsp.NewComplexFIR(taps)
	default:
		return nil, fmt.Errorf("amdemod: unsupported mode %v", cfg.Mode)
	}

	return d, nil
}

// Process demodulates one block of IF samples into mono audio samples.
func (d *Decoder) Process(iq []complex128) []float64 {
	d.ifAGC.Process(iq)
	filtered := d.bandpass.Process(iq)
	out := make([]float64, len(filtered))

	switch d.cfg.Mode {
	case AM, DSB:
		for i, s := range filtered {
			out[i] = math.Hypot(real(s), imag(s))
		}
		d.dcBlock.Filter(out)
	case USB, LSB:
		for i, s := range filtered {
			out[i] = real(s)
		}
	case CW:
		step := 2 * math.Pi * d.cfg.BeatFreqHz / d.cfg.SampleRate
		for i, s := range filtered {
			osc := complex(math.Cos(d.cwPhase), math.Sin(d.cwPhase))
			out[i] = real(s * osc)
			d.cwPhase += step
			if d.cwPhase > 2*math.Pi {
				d.cwPhase -= 2 * math.Pi
			}
		}
	}

	d.deemph.Filter(out)
	d.audioAGC.Process(out)

	return out
}
