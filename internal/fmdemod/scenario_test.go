package fmdemod

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fmStereoMPX synthesizes a baseband FM multiplex signal (mono sum plus a
// pilot tone plus a 38 kHz DSB-SC L-R subcarrier), then frequency-modulates
// a carrier with it, the way an on-air stereo FM broadcast would be built.
func fmStereoMPX(sampleRate, freqDev, pilotAmp, lrAmp float64, n int) []complex128 {
	out := make([]complex128, n)
	var phase float64
	for i := range out {
		t := float64(i) / sampleRate
		mono := 0.3 * math.Sin(2*math.Pi*1000*t)
		pilot := pilotAmp * math.Sin(2*math.Pi*19000*t)
		lr := lrAmp * math.Sin(2*math.Pi*2000*t) * math.Sin(2*math.Pi*38000*t)
		mpx := mono + pilot + lr
		phase += 2 * math.Pi * freqDev * mpx / sampleRate
		out[i] = complex(math.Cos(phase), math.Sin(phase))
	}
	return out
}

func processInChunks(d *Decoder, iq []complex128, chunk int) Result {
	var last Result
	for i := 0; i < len(iq); i += chunk {
		end := i + chunk
		if end > len(iq) {
			end = len(iq)
		}
		last = d.Process(iq[i:end])
	}
	return last
}

func TestSilentInputProducesSilentAudioAndNeverLocks(t *testing.T) { // S-1
	const sampleRate = 384000.0
	d := New(Config{
		SampleRate:      sampleRate,
		FreqDeviation:   75000,
		EnableAGC:       true,
		EnableEqualizer: true,
	})

	iq := make([]complex128, 100000)
	res := processInChunks(d, iq, 4096)

	for i, v := range res.Left {
		assert.InDeltaf(t, 0, v, 1e-6, "left[%d]", i)
	}
	for i, v := range res.Right {
		assert.InDeltaf(t, 0, v, 1e-6, "right[%d]", i)
	}
	assert.False(t, res.PilotLocked)
	assert.Empty(t, d.DrainPPS())
}

func TestMonoToneDecodesAtFullScaleWithoutStereoDetection(t *testing.T) { // S-2
	const sampleRate = 200000.0
	d := New(Config{
		SampleRate:      sampleRate,
		FreqDeviation:   75000,
		StereoPolicy:    PolicyFollowLock,
		EnableAGC:       true,
		EnableEqualizer: true,
	})

	iq := make([]complex128, 0, 40000)
	var phase float64
	for i := 0; i < 40000; i++ {
		mod := math.Sin(2 * math.Pi * 1000 * float64(i) / sampleRate)
		phase += 2 * math.Pi * 75000 * mod / sampleRate
		iq = append(iq, complex(math.Cos(phase), math.Sin(phase)))
	}

	res := processInChunks(d, iq, 8000)
	assert.False(t, res.StereoDetected)

	// RMS over the settled tail (the last 8000-sample block), after
	// AGC/equalizer warmup.
	tail := res.Left[len(res.Left)-8000:]
	var sumSq float64
	for _, v := range tail {
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(len(tail)))
	assert.Greater(t, rms, 0.1, "expected tone-scale RMS, got near-zero output")
}

func TestStereoPilotLocksAndReportsStereo(t *testing.T) { // S-3
	const sampleRate = 200000.0
	d := New(Config{
		SampleRate:      sampleRate,
		FreqDeviation:   75000,
		StereoPolicy:    PolicyFollowLock,
		EnableAGC:       true,
		EnableEqualizer: true,
	})

	iq := fmStereoMPX(sampleRate, 75000, 0.1, 0.1, 600000)
	res := processInChunks(d, iq, 4096)

	require.True(t, res.PilotLocked)
	assert.True(t, res.StereoDetected)
}

func TestSignalDropDuringLockLosesLockAndDiscardsPendingPPS(t *testing.T) { // S-4
	const sampleRate = 200000.0
	d := New(Config{
		SampleRate:      sampleRate,
		FreqDeviation:   75000,
		StereoPolicy:    PolicyFollowLock,
		EnableAGC:       true,
		EnableEqualizer: true,
	})

	locked := fmStereoMPX(sampleRate, 75000, 0.1, 0.1, 600000)
	res := processInChunks(d, locked, 4096)
	require.True(t, res.PilotLocked)

	// 50ms of silence mid-stream.
	silence := make([]complex128, int(0.05*sampleRate))
	res = processInChunks(d, silence, 4096)

	assert.False(t, res.PilotLocked)
	assert.Empty(t, d.DrainPPS())
}
