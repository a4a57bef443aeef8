// Package pipeline wires the device, demodulator and audio sink stages
// together as three goroutines connected by bounded queues: a producer
// reading raw samples from the device, a worker running the demodulator,
// and a consumer writing decoded audio to the sink.
//
// Grounded on controller.go's _pipeline: a sync.WaitGroup-joined trio of
// goroutines over channels (dongleStage/demodStage/outputStage), generalized
// from fixed []int16 channels to internal/queue.Queue[T] so backpressure is
// expressed in sample counts rather than channel depth, per the bounded FIFO
// behavior the rest of this module's components assume.
package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/kb9vrm/fmradion-go/internal/dsp"
	"github.com/kb9vrm/fmradion-go/internal/queue"
)

// IQBlock is a block of complex IF samples moving from producer to worker.
type IQBlock struct {
	Samples []complex128
}

// SampleCount implements queue.Block.
func (b IQBlock) SampleCount() int { return len(b.Samples) }

// AudioBlock is a block of decoded stereo audio moving from worker to
// consumer. PilotFreqHz is display-side PPM telemetry only, carried through
// for Metrics.PPMAverage; it is meaningless for modes without a pilot PLL.
// EqualizerError and EqualizerReferenceLevel are likewise display-only,
// carried through for Metrics.EqualizerTelemetry; both are zero for modes
// without a multipath equalizer, or when it is disabled.
type AudioBlock struct {
	Left, Right             []float64
	PilotFreqHz             float64
	EqualizerError          float64
	EqualizerReferenceLevel float64
}

// SampleCount implements queue.Block.
func (b AudioBlock) SampleCount() int { return len(b.Left) }

// Source produces IQ blocks until exhausted or Stop is called.
type Source interface {
	ReadBlock() (IQBlock, error)
}

// Demodulator turns one IQ block into one audio block.
type Demodulator interface {
	Process(IQBlock) AudioBlock
}

// Sink consumes audio blocks.
type Sink interface {
	WriteBlock(AudioBlock) error
}

// Metrics are cumulative pipeline counters safe for concurrent reads while
// the pipeline is running, intended for a status display or log line.
type Metrics struct {
	IQBlocksRead       atomic.Int64
	AudioBlocksWritten atomic.Int64
	SamplesProcessed   atomic.Int64
	Errors             atomic.Int64

	mu          sync.Mutex
	ppmAvg      *dsp.MovingAverage
	ppm         float64
	eqError     float64
	eqReference float64
}

// PPMAverage returns the current windowed average of PilotFreqHz seen so
// far, for a status display. Display-only: nothing in this package reads
// it back into a control loop.
func (m *Metrics) PPMAverage() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ppm
}

// EqualizerTelemetry returns the most recent multipath equalizer error and
// reference level seen from AudioBlocks, for a status display. Display-only,
// same as PPMAverage; both are zero if the decoder has no equalizer or it is
// disabled.
func (m *Metrics) EqualizerTelemetry() (errorLevel, referenceLevel float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eqError, m.eqReference
}

func (m *Metrics) recordPilotFreq(hz float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ppmAvg == nil {
		m.ppmAvg = dsp.NewMovingAverage(50)
	}
	m.ppm = m.ppmAvg.Add(hz)
}

func (m *Metrics) recordEqualizerTelemetry(errorLevel, referenceLevel float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eqError = errorLevel
	m.eqReference = referenceLevel
}

// Pipeline owns the queues and termination flag shared by the three
// pipeline goroutines.
type Pipeline struct {
	source Source
	demod  Demodulator
	sink   Sink

	iqQueue    *queue.Queue[IQBlock]
	audioQueue *queue.Queue[AudioBlock]

	overflowThreshold int
	overflowWarned    atomic.Bool
	audioMinFill      int

	stopping atomic.Bool
	Metrics  Metrics
}

// New builds a pipeline with the given stages and queue capacities (in
// samples; 0 means unbounded). ifSampleRate sizes the one-shot "input buffer
// growing" warning threshold (10x the IF rate, per the source-queue-overflow
// contract); audioMinFill is the minimum queued audio sample count the
// consumer waits for before waking, with a floor of 480 samples.
func New(source Source, demod Demodulator, sink Sink, iqCapacity, audioCapacity, ifSampleRate, audioMinFill int) *Pipeline {
	if audioMinFill < 480 {
		audioMinFill = 480
	}
	return &Pipeline{
		source:            source,
		demod:             demod,
		sink:              sink,
		iqQueue:           queue.New[IQBlock](iqCapacity),
		audioQueue:        queue.New[AudioBlock](audioCapacity),
		overflowThreshold: 10 * ifSampleRate,
		audioMinFill:      audioMinFill,
	}
}

// Run starts the three stages and blocks until all have finished, either
// because the source was exhausted or Stop was called.
func (p *Pipeline) Run() {
	var wg sync.WaitGroup
	wg.Add(3)

	go p.produce(&wg)
	go p.work(&wg)
	go p.consume(&wg)

	wg.Wait()
}

// Stop requests an orderly shutdown: the producer stops reading new blocks,
// and both queues are closed once drained.
func (p *Pipeline) Stop() {
	p.stopping.Store(true)
}

func (p *Pipeline) produce(wg *sync.WaitGroup) {
	defer wg.Done()
	defer p.iqQueue.Close()

	for !p.stopping.Load() {
		block, err := p.source.ReadBlock()
		if err != nil {
			log.Debug("producer stopped", "err", err)
			return
		}
		p.Metrics.IQBlocksRead.Add(1)
		p.iqQueue.Push(block)

		if p.overflowThreshold > 0 && p.iqQueue.QueuedSamples() > p.overflowThreshold {
			if p.overflowWarned.CompareAndSwap(false, true) {
				log.Warn("input buffer growing", "queuedSamples", p.iqQueue.QueuedSamples(), "threshold", p.overflowThreshold)
			}
		}
	}
}

func (p *Pipeline) work(wg *sync.WaitGroup) {
	defer wg.Done()
	defer p.audioQueue.Close()

	for {
		block, ok := p.iqQueue.Pull()
		if !ok {
			return
		}
		p.Metrics.SamplesProcessed.Add(int64(block.SampleCount()))
		audio := p.demod.Process(block)
		p.audioQueue.Push(audio)
	}
}

func (p *Pipeline) consume(wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		if p.audioQueue.QueuedSamples() == 0 {
			p.audioQueue.WaitUntilAtLeast(p.audioMinFill)
		}
		block, ok := p.audioQueue.Pull()
		if !ok {
			return
		}
		if block.PilotFreqHz != 0 {
			p.Metrics.recordPilotFreq(block.PilotFreqHz)
		}
		if block.EqualizerReferenceLevel != 0 {
			p.Metrics.recordEqualizerTelemetry(block.EqualizerError, block.EqualizerReferenceLevel)
		}
		if err := p.sink.WriteBlock(block); err != nil {
			p.Metrics.Errors.Add(1)
			log.Error("sink write failed", "err", err)
			continue
		}
		p.Metrics.AudioBlocksWritten.Add(1)
	}
}
