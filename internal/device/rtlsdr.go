package device

import (
	"errors"
	"fmt"

	rtl "github.com/jpoirier/gortlsdr"
)

const asyncBufferCount = 15

// rtlsdrDevice wraps a gortlsdr context, converting its async byte-buffer
// callback interface into a blocking ReadSamples call via an internal
// channel, the way dongleStage.routine feeds its toDemod channel from
// rtlsdrCallback.
//
// Grounded on dongle_stage.go's managedDongle/openDongle/rtlsdrCallback.
type rtlsdrDevice struct {
	ctx     *rtl.Context
	samples chan []complex128
	errs    chan error
	closing bool
}

func openRTLSDR(serial string) (Capability, error) {
	if rtl.GetDeviceCount() == 0 {
		return nil, errors.New("device: no rtlsdr devices connected")
	}

	devIdx := 0
	if serial != "" {
		idx, err := rtl.GetIndexBySerial(serial)
		if err != nil {
			return nil, fmt.Errorf("device: lookup serial %q: %w", serial, err)
		}
		devIdx = idx
	}

	ctx, err := rtl.Open(devIdx)
	if err != nil {
		return nil, fmt.Errorf("device: open rtlsdr: %w", err)
	}

	d := &rtlsdrDevice{
		ctx:     ctx,
		samples: make(chan []complex128, asyncBufferCount),
		errs:    make(chan error, 1),
	}

	go func() {
		err := ctx.ReadAsync(d.callback, nil, asyncBufferCount, 0)
		if err != nil && !d.closing {
			d.errs <- err
		}
	}()

	return d, nil
}

// callback converts unsigned 8-bit IQ pairs into unit-scaled complex128
// samples, mirroring rtlsdrCallback's int16 centering but kept in the
// floating-point domain the rest of this module's DSP operates in.
func (d *rtlsdrDevice) callback(buf []byte) {
	n := len(buf) / 2
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		re := (float64(buf[2*i]) - 127.5) / 127.5
		im := (float64(buf[2*i+1]) - 127.5) / 127.5
		out[i] = complex(re, im)
	}
	select {
	case d.samples <- out:
	default:
		// Drop the block under sustained backpressure rather than block the
		// gortlsdr callback thread.
	}
}

func (d *rtlsdrDevice) SetCenterFreq(hz uint32) error {
	return d.ctx.SetCenterFreq(int(hz))
}

func (d *rtlsdrDevice) SetSampleRate(hz uint32) error {
	return d.ctx.SetSampleRate(int(hz))
}

func (d *rtlsdrDevice) ReadSamples(n int) ([]complex128, error) {
	select {
	case block := <-d.samples:
		return block, nil
	case err := <-d.errs:
		return nil, err
	}
}

func (d *rtlsdrDevice) Close() error {
	d.closing = true
	if err := d.ctx.CancelAsync(); err != nil {
		return err
	}
	return d.ctx.Close()
}
