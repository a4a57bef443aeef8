// Package pps writes the PPS (pulse-per-second) event log: for FM, one line
// per pilot period boundary; for other modes, one line per periodic block
// tick. Exact line formats below are reproduced from the CLI's documented
// PPS output contract.
package pps

import (
	"bufio"
	"fmt"
	"io"
)

// Writer writes PPS lines to an underlying io.Writer, buffering and
// flushing after every line so a consumer tailing the file sees events
// promptly.
type Writer struct {
	w       *bufio.Writer
	fmMode  bool
	started bool
}

// NewFMWriter returns a Writer for FM mode: header line
// "#pps_index sample_index   unix_time", one data line per pilot PPS event.
func NewFMWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), fmMode: true}
}

// NewBlockWriter returns a Writer for non-FM modes: header line
// "#  block   unix_time", one data line per periodic block tick.
func NewBlockWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), fmMode: false}
}

func (w *Writer) writeHeader() error {
	var err error
	if w.fmMode {
		_, err = fmt.Fprintln(w.w, "#pps_index sample_index   unix_time")
	} else {
		_, err = fmt.Fprintln(w.w, "#  block   unix_time")
	}
	w.started = true
	return err
}

// WritePPSEvent writes one FM pilot PPS event line. Calling this on a
// Writer built with NewBlockWriter is a programming error.
func (w *Writer) WritePPSEvent(ppsIndex, sampleIndex int64, unixTime float64) error {
	if !w.fmMode {
		return fmt.Errorf("pps: WritePPSEvent called on a non-FM writer")
	}
	if !w.started {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w.w, "%8d %14d %18.6f\n", ppsIndex, sampleIndex, unixTime)
	if err != nil {
		return err
	}
	return w.w.Flush()
}

// WriteBlockTick writes one periodic block-tick line. Calling this on a
// Writer built with NewFMWriter is a programming error.
func (w *Writer) WriteBlockTick(block int64, unixTime float64) error {
	if w.fmMode {
		return fmt.Errorf("pps: WriteBlockTick called on an FM writer")
	}
	if !w.started {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w.w, "%8d %18.6f\n", block, unixTime)
	if err != nil {
		return err
	}
	return w.w.Flush()
}
