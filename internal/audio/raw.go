package audio

import "io"

// Format selects the raw sample encoding RawSink writes.
type Format int

const (
	FormatS16LE Format = iota
	FormatF32LE
)

// RawSink writes interleaved stereo samples straight to an io.Writer with
// no container, matching RawAudioOutput's "no header" stream contract.
type RawSink struct {
	w      io.Writer
	format Format
}

// NewRawSink builds a sink writing the given format to w.
func NewRawSink(w io.Writer, format Format) *RawSink {
	return &RawSink{w: w, format: format}
}

// Write encodes and writes one block of interleaved stereo samples.
func (s *RawSink) Write(left, right []float64) error {
	var buf []byte
	switch s.format {
	case FormatF32LE:
		buf = EncodeF32LE(left, right)
	default:
		buf = EncodeS16LE(left, right)
	}
	_, err := s.w.Write(buf)
	return err
}

// Close closes the underlying writer if it supports io.Closer.
func (s *RawSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
