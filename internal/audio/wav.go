package audio

import (
	"io"

	waudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavSink writes a bit-exact 44-byte-header stereo WAV file, matching
// WavAudioOutput's container contract. The header is finalized on Close, so
// callers must Close the sink to produce a valid file.
type WavSink struct {
	enc *wav.Encoder
}

// NewWavSink builds a sink at the given sample rate, writing 16-bit stereo
// PCM WAV data to w.
func NewWavSink(w io.WriteSeeker, sampleRate int) *WavSink {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	return &WavSink{enc: enc}
}

// Write encodes one block of interleaved stereo samples as 16-bit PCM.
func (s *WavSink) Write(left, right []float64) error {
	data := make([]int, len(left)*2)
	for i := range left {
		data[2*i] = int(clampS16(left[i]))
		data[2*i+1] = int(clampS16(right[i]))
	}
	buf := &waudio.IntBuffer{
		Format: &waudio.Format{NumChannels: 2, SampleRate: s.enc.SampleRate},
		Data:   data,
	}
	return s.enc.Write(buf)
}

// Close finalizes the WAV header and flushes any buffered encoder state.
func (s *WavSink) Close() error {
	return s.enc.Close()
}
