// Copyright (C) 2014 Ian Bishop
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, write to the Free Software Foundation, Inc.,
// 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.

// Command fmradion is a software-defined-radio FM/AM/NBFM receiver: tune a
// device, demodulate, and write decoded audio to a file or the system
// audio device.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/kb9vrm/fmradion-go/internal/amdemod"
	"github.com/kb9vrm/fmradion-go/internal/audio"
	"github.com/kb9vrm/fmradion-go/internal/config"
	"github.com/kb9vrm/fmradion-go/internal/device"
	"github.com/kb9vrm/fmradion-go/internal/fmdemod"
	"github.com/kb9vrm/fmradion-go/internal/nbfm"
	"github.com/kb9vrm/fmradion-go/internal/pipeline"
	"github.com/kb9vrm/fmradion-go/internal/pps"
	"github.com/kb9vrm/fmradion-go/internal/resample"
	"github.com/kb9vrm/fmradion-go/internal/shift"
)

func main() {
	var (
		mode         = flag.StringP("mode", "m", "fm", "demod mode: fm|am|dsb|usb|lsb|cw|nbfm")
		deviceFamily = flag.String("device", "rtlsdr", "device family: rtlsdr|file")
		deviceSpec   = flag.String("device-spec", "", "device serial (rtlsdr) or path (file)")
		deviceConfig = flag.String("device-config", "", "comma-separated key=value device tuning parameters")
		freqHz       = flag.Uint32P("freq", "f", 100000000, "tuned center frequency in Hz")
		sampleRate   = flag.Uint32("rate", 200000, "IF sample rate in Hz")
		stereo       = flag.Bool("stereo", true, "always decode FM stereo; when false, stereo is decoded only while the pilot is locked (there is no forced-mono mode)")
		pilotShift   = flag.Bool("pilot-shift", false, "monitor L-R instead of L+R/L-R matrix")
		deemph75     = flag.Bool("deemph-75us", true, "use 75us (US) deemphasis instead of 50us (EU)")
		equalizerLen = flag.Int("equalizer-taps", 41, "multipath equalizer tap count")
		outputMode   = flag.String("output", "raw-s16le", "output sink: raw-s16le|raw-f32le|wav|playback")
		outputPath   = flag.String("output-path", "", "output file path (ignored for playback)")
		ppsFile      = flag.String("pps-file", "", "PPS event log file path")
		audioRate    = flag.Uint32("audio-rate", 48000, "output audio sample rate in Hz")
	)
	flag.Parse()

	cfg := config.Default()
	cfg.Mode = *mode
	cfg.DeviceFamily = *deviceFamily
	cfg.DeviceSpec = *deviceSpec
	cfg.Frequency = *freqHz
	cfg.SampleRate = *sampleRate
	cfg.Stereo = *stereo
	cfg.PilotShift = *pilotShift
	cfg.DeemphasisUS = *deemph75
	cfg.EqualizerStages = *equalizerLen
	cfg.OutputMode = config.OutputMode(*outputMode)
	cfg.OutputPath = *outputPath
	cfg.PPSFilePath = *ppsFile

	devCfg, err := config.ParseDeviceConfig(*deviceConfig)
	handleErr("invalid device configuration: %s\n", err)
	cfg.DeviceConfig = devCfg

	dev, err := device.Open(device.Family(cfg.DeviceFamily), cfg.DeviceSpec)
	handleErr("unable to open device: %s\n", err)
	handleErr("unable to set center frequency: %s\n", dev.SetCenterFreq(cfg.Frequency))
	handleErr("unable to set sample rate: %s\n", dev.SetSampleRate(cfg.SampleRate))

	sink, err := buildSink(cfg, *audioRate)
	handleErr("unable to open output sink: %s\n", err)

	demod, drainPPS, err := buildDemodulator(cfg)
	handleErr("unable to configure demodulator: %s\n", err)
	demod = newResamplingDemod(demod, float64(*audioRate)/float64(cfg.SampleRate))

	var ppsCloser io.Closer
	if cfg.PPSFilePath != "" {
		f, err := os.Create(cfg.PPSFilePath)
		handleErr("unable to open pps file: %s\n", err)
		ppsCloser = f
		if drainPPS != nil {
			demod = newPPSEventDemod(demod, pps.NewFMWriter(f), drainPPS, float64(cfg.SampleRate))
		} else {
			demod = newPPSTickDemod(demod, pps.NewBlockWriter(f))
		}
	}

	src := deviceSource{dev: dev, blockSize: 16384}
	if cfg.DeviceFamily == string(device.FamilyRTLSDR) {
		src.shifter = shift.NewFs4Shifter()
	}
	minFill := int(0.1 * float64(*audioRate) * 2)
	p := pipeline.New(src, demod, sinkAdapter{sink}, int(cfg.SampleRate)*10, int(cfg.SampleRate)*2, int(cfg.SampleRate), minFill)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	go func() {
		<-signalChan
		log.Info("received interrupt, shutting down")
		p.Stop()
	}()

	log.Info("starting pipeline", "mode", cfg.Mode, "freq", cfg.Frequency, "rate", cfg.SampleRate)
	p.Run()

	if err := sink.Close(); err != nil {
		log.Error("error closing sink", "err", err)
	}
	if ppsCloser != nil {
		if err := ppsCloser.Close(); err != nil {
			log.Error("error closing pps file", "err", err)
		}
	}
	log.Info("pipeline finished", "blocksRead", p.Metrics.IQBlocksRead.Load(), "blocksWritten", p.Metrics.AudioBlocksWritten.Load())
}

func handleErr(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, msg, err)
		os.Exit(1)
	}
}

// deviceSource adapts a device.Capability to pipeline.Source. shifter is
// non-nil only for zero-IF devices (RTL-SDR), per spec.md §4.2: it rotates
// the spectrum by -Fs/4 to move the tuner's DC spike away from band center
// before any IF processing sees the samples.
type deviceSource struct {
	dev       device.Capability
	blockSize int
	shifter   *shift.Fs4Shifter
}

func (s deviceSource) ReadBlock() (pipeline.IQBlock, error) {
	samples, err := s.dev.ReadSamples(s.blockSize)
	if err != nil {
		return pipeline.IQBlock{}, err
	}
	if s.shifter != nil {
		s.shifter.Process(samples)
	}
	return pipeline.IQBlock{Samples: samples}, nil
}

type sinkAdapter struct {
	sink audio.Sink
}

func (a sinkAdapter) WriteBlock(b pipeline.AudioBlock) error {
	return a.sink.Write(b.Left, b.Right)
}

func buildSink(cfg config.Config, audioRate uint32) (audio.Sink, error) {
	switch cfg.OutputMode {
	case config.OutputPlayback:
		return audio.NewPlaybackSink(float64(audioRate), 4096)
	case config.OutputWAV:
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		return audio.NewWavSink(f, int(audioRate)), nil
	case config.OutputRawF32LE:
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		return audio.NewRawSink(f, audio.FormatF32LE), nil
	default:
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		return audio.NewRawSink(f, audio.FormatS16LE), nil
	}
}

// resamplingDemod wraps a Demodulator with an audio-rate resampling stage.
// Left and right are always resampled through independent internal/resample
// instances advanced in lockstep, one call per block, even in mono modes
// where both channels carry the same samples: the resamplers' internal
// phase accumulators must stay aligned with the cadence of blocks flowing
// through the pipeline regardless of whether the right channel is audible.
type resamplingDemod struct {
	inner pipeline.Demodulator
	left  *resample.Real
	right *resample.Real
}

func newResamplingDemod(inner pipeline.Demodulator, ratio float64) pipeline.Demodulator {
	if ratio == 1 {
		return inner
	}
	return &resamplingDemod{
		inner: inner,
		left:  resample.NewReal(ratio),
		right: resample.NewReal(ratio),
	}
}

func (r *resamplingDemod) Process(block pipeline.IQBlock) pipeline.AudioBlock {
	res := r.inner.Process(block)
	return pipeline.AudioBlock{
		Left:                    r.left.Process(res.Left),
		Right:                   r.right.Process(res.Right),
		PilotFreqHz:             res.PilotFreqHz,
		EqualizerError:          res.EqualizerError,
		EqualizerReferenceLevel: res.EqualizerReferenceLevel,
	}
}

// blockDemod adapts one of the mode-specific decoders to pipeline.Demodulator.
type blockDemod struct {
	process func(pipeline.IQBlock) pipeline.AudioBlock
}

func (b blockDemod) Process(block pipeline.IQBlock) pipeline.AudioBlock {
	return b.process(block)
}

// buildDemodulator returns the mode-specific demodulator plus, for FM, a
// drainPPS function pulling newly fired pilot PPS sample indices out of the
// underlying decoder (nil for every other mode, which has no pilot PLL).
func buildDemodulator(cfg config.Config) (pipeline.Demodulator, func() []int, error) {
	switch cfg.Mode {
	case "fm":
		policy := fmdemod.PolicyForceDetected
		if !cfg.Stereo {
			policy = fmdemod.PolicyFollowLock
		}
		dec := fmdemod.New(fmdemod.Config{
			SampleRate:      float64(cfg.SampleRate),
			FreqDeviation:   75000,
			DeemphasisSecs:  cfg.DeemphasisSeconds(),
			StereoPolicy:    policy,
			PilotShift:      cfg.PilotShift,
			EnableAGC:       true,
			EnableEqualizer: true,
			EqualizerTaps:   cfg.EqualizerStages,
		})
		demod := blockDemod{process: func(block pipeline.IQBlock) pipeline.AudioBlock {
			res := dec.Process(block.Samples)
			return pipeline.AudioBlock{
				Left:                    res.Left,
				Right:                   res.Right,
				PilotFreqHz:             res.PilotFreqHz,
				EqualizerError:          res.EqualizerError,
				EqualizerReferenceLevel: res.EqualizerReferenceLevel,
			}
		}}
		return demod, dec.DrainPPS, nil

	case "nbfm":
		dec := nbfm.New(nbfm.Config{
			SampleRate:    float64(cfg.SampleRate),
			FreqDeviation: 3000,
			Bandwidth:     12500,
			EnableAGC:     true,
		})
		return blockDemod{process: func(block pipeline.IQBlock) pipeline.AudioBlock {
			mono := dec.Process(block.Samples)
			return pipeline.AudioBlock{Left: mono, Right: mono}
		}}, nil, nil

	case "am", "dsb", "usb", "lsb", "cw":
		mode, err := amModeFor(cfg.Mode)
		if err != nil {
			return nil, nil, err
		}
		dec, err := amdemod.New(amdemod.Config{
			Mode:       mode,
			SampleRate: float64(cfg.SampleRate),
			Bandwidth:  6000,
			BeatFreqHz: 600,
		})
		if err != nil {
			return nil, nil, err
		}
		return blockDemod{process: func(block pipeline.IQBlock) pipeline.AudioBlock {
			mono := dec.Process(block.Samples)
			return pipeline.AudioBlock{Left: mono, Right: mono}
		}}, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

// ppsEventDemod wraps a Demodulator with PPS event-file writing for FM mode:
// after every block it drains newly fired pilot PPS sample indices and
// writes one line per event, converting sample index to wall-clock time via
// the configured IF sample rate.
type ppsEventDemod struct {
	inner      pipeline.Demodulator
	w          *pps.Writer
	drain      func() []int
	ppsIndex   int64
	startTime  time.Time
	sampleRate float64
}

func newPPSEventDemod(inner pipeline.Demodulator, w *pps.Writer, drain func() []int, sampleRate float64) pipeline.Demodulator {
	return &ppsEventDemod{inner: inner, w: w, drain: drain, startTime: time.Now(), sampleRate: sampleRate}
}

func (p *ppsEventDemod) Process(block pipeline.IQBlock) pipeline.AudioBlock {
	res := p.inner.Process(block)
	for _, sampleIdx := range p.drain() {
		unixTime := float64(p.startTime.UnixNano())/1e9 + float64(sampleIdx)/p.sampleRate
		if err := p.w.WritePPSEvent(p.ppsIndex, int64(sampleIdx), unixTime); err != nil {
			log.Error("error writing pps event", "err", err)
		}
		p.ppsIndex++
	}
	return res
}

// ppsTickDemod wraps a Demodulator with a periodic block-tick PPS log for
// non-FM modes, which have no pilot to derive events from.
type ppsTickDemod struct {
	inner pipeline.Demodulator
	w     *pps.Writer
	block int64
}

func newPPSTickDemod(inner pipeline.Demodulator, w *pps.Writer) pipeline.Demodulator {
	return &ppsTickDemod{inner: inner, w: w}
}

func (p *ppsTickDemod) Process(block pipeline.IQBlock) pipeline.AudioBlock {
	res := p.inner.Process(block)
	if err := p.w.WriteBlockTick(p.block, float64(time.Now().Unix())); err != nil {
		log.Error("error writing pps tick", "err", err)
	}
	p.block++
	return res
}

func amModeFor(mode string) (amdemod.Mode, error) {
	switch mode {
	case "am":
		return amdemod.AM, nil
	case "dsb":
		return amdemod.DSB, nil
	case "usb":
		return amdemod.USB, nil
	case "lsb":
		return amdemod.LSB, nil
	case "cw":
		return amdemod.CW, nil
	default:
		return 0, fmt.Errorf("unknown AM-family mode %q", mode)
	}
}
