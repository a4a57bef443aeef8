// Package nbfm implements the narrowband FM decoder used for two-way radio
// and other non-broadcast FM signals: a narrow IF filter feeding the same
// discriminator used by the broadcast decoder, with no stereo or deemphasis
// processing.
//
// Grounded on FmDecode.cpp's FM path, trimmed to the narrowband case, and
// composed from this module's own agc/discriminator/dsp components.
package nbfm

import (
	"github.com/kb9vrm/fmradion-go/internal/agc"
	"github.com/kb9vrm/fmradion-go/internal/discriminator"
	"github.com/kb9vrm/fmradion-go/internal/dsp"
)

// Config configures a Decoder.
type Config struct {
	SampleRate    float64
	FreqDeviation float64 // typically 2.5-5 kHz for NBFM, versus 75 kHz broadcast.
	Bandwidth     float64 // IF channel bandwidth in Hz.
	EnableAGC     bool
}

// Decoder holds per-stream narrowband FM decode state.
type Decoder struct {
	cfg      Config
	agc      *agc.AGC
	bandpass *dsp.ComplexFIR
	disc     *discriminator.Discriminator
	dcBlock  *dsp.DCBlocker
}

// New builds a decoder for the given configuration.
func New(cfg Config) *Decoder {
	taps := dsp.DesignBandPass(63, cfg.Bandwidth/(2*cfg.SampleRate), 0)
	return &Decoder{
		cfg:      cfg,
		agc:      agc.New(),
		bandpass: dsp.NewComplexFIR(taps),
		disc:     discriminator.New(cfg.FreqDeviation, cfg.SampleRate, true),
		dcBlock:  dsp.NewDCBlocker(0.999),
	}
}

// Process demodulates one block of IF samples into mono audio samples.
func (d *Decoder) Process(iq []complex128) []float64 {
	if d.cfg.EnableAGC {
		d.agc.Process(iq)
	}
	filtered := d.bandpass.Process(iq)
	out := d.disc.Process(filtered)
	d.dcBlock.Filter(out)
	return out
}
