// Package pll implements the 19 kHz stereo pilot phase-locked loop: a
// type-2, fourth-order loop that tracks the pilot tone, regenerates the
// 38 kHz stereo subcarrier, and reports lock state and per-second pilot
// pulse events.
//
// Grounded on FmDecode.cpp's PilotPhaseLock: the coefficient derivation,
// the sin/cos local-oscillator update, the I/Q phasor low-pass filters used
// for both phase detection and signal-level gating, and the lock/PPS
// bookkeeping are ported line-for-line from the C++ implementation and
// rewritten in the State-plus-Process idiom used by sergev-fdx's PLL
// example.
package pll

import (
	"math"

	"github.com/kb9vrm/fmradion-go/internal/dsp"
)

const (
	pilotFreq = 19000.0
	// minSignal gates locking on pilot amplitude, not just phase error: a
	// silent or noise-only input drives phaseErr near zero too, which would
	// otherwise look indistinguishable from a converged loop.
	minSignal = 0.001
)

// State holds the pilot PLL's full internal state: the phasor low-pass
// filters, the loop filter, the local-oscillator phase/frequency, and lock
// bookkeeping.
type State struct {
	sampleRate float64
	minFreq    float64
	maxFreq    float64

	// Phasor low-pass filters (2nd order, unit DC gain, shared coefficients
	// for the sin- and cos-mixed channels).
	a1, a2, b0       float64
	iState1, iState2 float64
	qState1, qState2 float64

	// Loop filter: feedforward-only PI section driving the frequency
	// integrator.
	loopB0, loopB1 float64
	loopX1         float64

	// Local oscillator, in cycles (phase in [0,1), freq in cycles/sample).
	phase float64
	freq  float64

	// Lock state machine.
	lockCnt      int
	lockDelay    int
	pilotPeriods int
	ppsCnt       int
	locked       bool

	// pendingPPS accumulates sample indices (since this State's creation)
	// at which a PPS boundary fired while the loop was locked.
	pendingPPS []int
	sampleIdx  int
}

// New builds a pilot PLL tuned for pilotFreq at sampleRate, with loop
// bandwidth bandwidth (normalized to sampleRate, e.g. 0.001) and maximum
// frequency excursion maxDeviationHz away from pilotFreq.
//
// Coefficients follow PilotPhaseLock's constructor: p1/p2 are the phasor
// filter's pole pair, q1 the loop filter's zero.
func New(sampleRate, bandwidth, maxDeviationHz float64) *State {
	b := bandwidth
	p1 := math.Exp(-1.146 * 2 * math.Pi * b)
	p2 := math.Exp(-5.331 * 2 * math.Pi * b)
	q1 := math.Exp(-0.1153 * 2 * math.Pi * b)

	a1 := -(p1 + p2)
	a2 := p1 * p2
	b0 := 1 + a1 + a2

	loopB0 := 0.62 * b
	loopB1 := -loopB0 * q1

	s := &State{
		sampleRate: sampleRate,
		minFreq:    (pilotFreq - maxDeviationHz) / sampleRate,
		maxFreq:    (pilotFreq + maxDeviationHz) / sampleRate,
		a1:         a1,
		a2:         a2,
		b0:         b0,
		loopB0:     loopB0,
		loopB1:     loopB1,
		freq:       pilotFreq / sampleRate,
		lockDelay:  int(20.0 / b),
	}
	return s
}

// Locked reports whether the loop currently considers the pilot present.
func (s *State) Locked() bool {
	return s.locked
}

// Freq returns the loop's current estimate of the pilot frequency, in Hz.
func (s *State) Freq() float64 {
	return s.freq * s.sampleRate
}

// Process runs the loop over one block of the (real-valued, already
// band-pass filtered around 19 kHz) pilot signal, returning per-sample
// sine/cosine of the regenerated 38 kHz subcarrier (cos(2*theta),
// sin(2*theta)) for stereo demultiplexing.
func (s *State) Process(pilot []float64) (cos38, sin38 []float64) {
	cos38 = make([]float64, len(pilot))
	sin38 = make([]float64, len(pilot))
	if len(pilot) == 0 {
		return cos38, sin38
	}

	// PPS events are only kept if the loop was already locked at the start
	// of this call; whether it still is by the end is decided afterward,
	// from the pilot level seen across the whole block, matching
	// PilotPhaseLock::process's was_locked/pilot_level bookkeeping.
	wasLocked := s.locked
	pilotLevel := math.Inf(1)

	for i, x := range pilot {
		psin := math.Sin(2 * math.Pi * s.phase)
		pcos := math.Cos(2 * math.Pi * s.phase)

		// Mix the input against the local oscillator, then low-pass each
		// channel (unit DC gain, two real poles) to reject the
		// double-frequency term and leave a phase-error-proportional
		// near-DC component.
		mixedI := psin * x
		mixedQ := pcos * x

		i1 := s.b0*mixedI - s.a1*s.iState1 - s.a2*s.iState2
		s.iState2 = s.iState1
		s.iState1 = i1

		q1 := s.b0*mixedQ - s.a1*s.qState1 - s.a2*s.qState2
		s.qState2 = s.qState1
		s.qState1 = q1

		if i1 < pilotLevel {
			pilotLevel = i1
		}

		phaseErr := dsp.FastAtan2(q1, i1)

		s.freq += s.loopB0*phaseErr + s.loopB1*s.loopX1
		s.loopX1 = phaseErr
		if s.freq < s.minFreq {
			s.freq = s.minFreq
		}
		if s.freq > s.maxFreq {
			s.freq = s.maxFreq
		}
		s.phase += s.freq
		for s.phase >= 1 {
			s.phase -= 1
			s.pilotPeriods++
			if s.pilotPeriods >= int(pilotFreq) {
				s.pilotPeriods = 0
				if wasLocked {
					s.pendingPPS = append(s.pendingPPS, s.sampleIdx)
					s.ppsCnt++
				}
			}
		}
		s.sampleIdx++

		theta2 := 4 * math.Pi * s.phase
		cos38[i] = math.Cos(theta2)
		sin38[i] = math.Sin(theta2)
	}

	// Lock decision for the whole block: the pilot's filtered I-channel
	// level must stay above minSignal throughout, or the lock counter
	// resets immediately; it only ramps up gradually toward lockDelay.
	if 2*pilotLevel > minSignal {
		s.lockCnt += len(pilot)
		if s.lockCnt > s.lockDelay {
			s.lockCnt = s.lockDelay
		}
	} else {
		s.lockCnt = 0
	}
	s.locked = s.lockCnt >= s.lockDelay
	if !s.locked {
		s.pilotPeriods = 0
		s.ppsCnt = 0
		s.pendingPPS = nil
	}

	return cos38, sin38
}

// DrainPPS removes and returns sample indices (relative to the start of
// this loop's lifetime) at which a pilot-period boundary was crossed while
// locked, for writing PPS event files.
func (s *State) DrainPPS() []int {
	out := s.pendingPPS
	s.pendingPPS = nil
	return out
}
