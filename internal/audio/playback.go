package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PlaybackSink writes decoded audio straight to the system's default audio
// device, matching PortAudioOutput's live-monitoring role.
//
// Grounded on gordonklaus/portaudio's OpenDefaultStream/Write contract.
type PlaybackSink struct {
	stream *portaudio.Stream
	buf    []float32
}

// NewPlaybackSink opens the default output device for stereo float32
// playback at sampleRate.
func NewPlaybackSink(sampleRate float64, framesPerBuffer int) (*PlaybackSink, error) {
	buf := make([]float32, framesPerBuffer*2)
	stream, err := portaudio.OpenDefaultStream(0, 2, sampleRate, framesPerBuffer, &buf)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		return nil, err
	}
	return &PlaybackSink{stream: stream, buf: buf}, nil
}

// Write interleaves and plays one block of stereo samples. The block size
// must match the framesPerBuffer the sink was opened with, since the
// underlying stream is bound to a fixed-size buffer.
func (s *PlaybackSink) Write(left, right []float64) error {
	n := len(left)
	if 2*n != len(s.buf) {
		return fmt.Errorf("audio: playback block size %d does not match stream buffer size %d", n, len(s.buf)/2)
	}
	for i := range left {
		s.buf[2*i] = float32(left[i])
		s.buf[2*i+1] = float32(right[i])
	}
	return s.stream.Write()
}

// Close stops the stream and releases the underlying PortAudio resources.
func (s *PlaybackSink) Close() error {
	if err := s.stream.Stop(); err != nil {
		return err
	}
	return s.stream.Close()
}
