package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSourceExhausted = errors.New("source exhausted")

type fakeSource struct {
	mu     sync.Mutex
	blocks []IQBlock
	idx    int
}

func (s *fakeSource) ReadBlock() (IQBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.blocks) {
		return IQBlock{}, errSourceExhausted
	}
	b := s.blocks[s.idx]
	s.idx++
	return b, nil
}

type passthroughDemod struct{}

func (passthroughDemod) Process(b IQBlock) AudioBlock {
	left := make([]float64, len(b.Samples))
	for i, s := range b.Samples {
		left[i] = real(s)
	}
	return AudioBlock{Left: left, Right: left}
}

type fakeSink struct {
	mu     sync.Mutex
	blocks []AudioBlock
}

func (s *fakeSink) WriteBlock(b AudioBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, b)
	return nil
}

func makeBlocks(n, size int) []IQBlock {
	out := make([]IQBlock, n)
	for i := range out {
		samples := make([]complex128, size)
		for j := range samples {
			samples[j] = complex(float64(i*size+j), 0)
		}
		out[i] = IQBlock{Samples: samples}
	}
	return out
}

func TestPipelineDeliversAllBlocksToSink(t *testing.T) {
	src := &fakeSource{blocks: makeBlocks(10, 5)}
	sink := &fakeSink{}
	p := New(src, passthroughDemod{}, sink, 0, 0, 0, 0)

	p.Run()

	require.Equal(t, int64(10), p.Metrics.IQBlocksRead.Load())
	require.Equal(t, int64(10), p.Metrics.AudioBlocksWritten.Load())
	assert.Len(t, sink.blocks, 10)
}

func TestPipelineStopHaltsProducerEventually(t *testing.T) {
	src := &fakeSource{blocks: makeBlocks(1000000, 4)}
	sink := &fakeSink{}
	p := New(src, passthroughDemod{}, sink, 0, 0, 0, 0)

	go func() {
		p.Stop()
	}()

	done := make(chan struct{})
	go func() {
		p.Run()
		close(done)
	}()

	<-done
	assert.Less(t, p.Metrics.IQBlocksRead.Load(), int64(1000000))
}

func TestPPMAverageTracksPilotFreqFromAudioBlocks(t *testing.T) {
	src := &fakeSource{blocks: makeBlocks(5, 5)}
	sink := &fakeSink{}
	p := New(src, pilotFreqDemod{hz: 19000.5}, sink, 0, 0, 0, 0)

	p.Run()

	assert.InDelta(t, 19000.5, p.Metrics.PPMAverage(), 1e-9)
}

type pilotFreqDemod struct{ hz float64 }

func (d pilotFreqDemod) Process(b IQBlock) AudioBlock {
	left := make([]float64, len(b.Samples))
	return AudioBlock{Left: left, Right: left, PilotFreqHz: d.hz}
}

func TestEqualizerTelemetryTracksLatestAudioBlock(t *testing.T) {
	src := &fakeSource{blocks: makeBlocks(5, 5)}
	sink := &fakeSink{}
	p := New(src, equalizerTelemetryDemod{errorLevel: 0.02, referenceLevel: 0.87}, sink, 0, 0, 0, 0)

	p.Run()

	errorLevel, referenceLevel := p.Metrics.EqualizerTelemetry()
	assert.InDelta(t, 0.02, errorLevel, 1e-9)
	assert.InDelta(t, 0.87, referenceLevel, 1e-9)
}

type equalizerTelemetryDemod struct{ errorLevel, referenceLevel float64 }

func (d equalizerTelemetryDemod) Process(b IQBlock) AudioBlock {
	left := make([]float64, len(b.Samples))
	return AudioBlock{Left: left, Right: left, EqualizerError: d.errorLevel, EqualizerReferenceLevel: d.referenceLevel}
}

func TestSinkErrorIsCountedAndDoesNotStallPipeline(t *testing.T) {
	src := &fakeSource{blocks: makeBlocks(3, 2)}
	errSink := &erroringSink{}
	p := New(src, passthroughDemod{}, errSink, 0, 0, 0, 0)

	p.Run()

	assert.Equal(t, int64(3), p.Metrics.Errors.Load())
	assert.Equal(t, int64(0), p.Metrics.AudioBlocksWritten.Load())
}

type erroringSink struct{}

func (erroringSink) WriteBlock(AudioBlock) error {
	return errors.New("write failed")
}
