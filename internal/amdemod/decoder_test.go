package amdemod

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amModulatedTone(sampleRate, audioFreq float64, depth float64, n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		env := 1 + depth*math.Sin(2*math.Pi*audioFreq*float64(i)/sampleRate)
		out[i] = complex(env, 0)
	}
	return out
}

func TestAMEnvelopeDetectionRecoversModulationEnvelope(t *testing.T) {
	const sampleRate = 48000.0
	d, err := New(Config{Mode: AM, SampleRate: sampleRate, Bandwidth: 10000})
	require.NoError(t, err)

	iq := amModulatedTone(sampleRate, 400, 0.5, 4000)
	out := d.Process(iq)

	require.Equal(t, len(iq), len(out))

	maxV, minV := out[1000], out[1000]
	for _, v := range out[1000:] {
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}
	assert.Greater(t, maxV-minV, 0.1)
}

func TestUnsupportedModeReturnsError(t *testing.T) {
	_, err := New(Config{Mode: Mode(99), SampleRate: 48000, Bandwidth: 3000})
	assert.Error(t, err)
}

func TestDSBEnvelopeDetectionRecoversModulationEnvelope(t *testing.T) {
	const sampleRate = 48000.0
	d, err := New(Config{Mode: DSB, SampleRate: sampleRate, Bandwidth: 10000})
	require.NoError(t, err)

	iq := amModulatedTone(sampleRate, 400, 0.5, 4000)
	out := d.Process(iq)

	require.Equal(t, len(iq), len(out))

	maxV, minV := out[1000], out[1000]
	for _, v := range out[1000:] {
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}
	assert.Greater(t, maxV-minV, 0.1)
}

func TestCWProducesBeatNoteOutput(t *testing.T) {
	d, err := New(Config{Mode: CW, SampleRate: 48000, Bandwidth: 500, BeatFreqHz: 600})
	require.NoError(t, err)
	iq := make([]complex128, 4800)
	for i := range iq {
		iq[i] = complex(1, 0)
	}
	out := d.Process(iq)
	require.Equal(t, len(iq), len(out))

	nonzero := false
	for _, v := range out {
		if v != 0 {
			nonzero = true
			break
		}
	}
	assert.True(t, nonzero)
}

func TestAMToneSettlesToCommonAudioLevelRegardlessOfInputAmplitude(t *testing.T) { // S-5
	const sampleRate = 48000.0

	settle := func(carrierAmp float64) float64 {
		d, err := New(Config{Mode: AM, SampleRate: sampleRate, Bandwidth: 10000})
		require.NoError(t, err)

		iq := make([]complex128, 20000)
		for i := range iq {
			env := carrierAmp * (1 + 0.8*math.Sin(2*math.Pi*1000*float64(i)/sampleRate))
			iq[i] = complex(env, 0)
		}
		out := d.Process(iq)

		tail := out[len(out)-4000:]
		var sumSq float64
		for _, v := range tail {
			sumSq += v * v
		}
		return math.Sqrt(sumSq / float64(len(tail)))
	}

	// Both amplitudes stay at or below the AGC's unity-gain floor (it can only
	// boost a weak signal up to the target, per spec.md's [1.0, ceiling] gain
	// range; it cannot attenuate a signal already above target).
	veryWeak := settle(0.01)
	weak := settle(0.3)

	assert.Greater(t, veryWeak, 0.05, "AGC should bring a weak carrier up toward the target level")
	assert.Greater(t, weak, 0.05, "AGC should bring a weak carrier up toward the target level")
	assert.InDelta(t, veryWeak, weak, 0.5, "settled audio level should be roughly independent of input amplitude")
}

func TestModeStringer(t *testing.T) {
	assert.Equal(t, "AM", AM.String())
	assert.Equal(t, "USB", USB.String())
	assert.Equal(t, "unknown", Mode(42).String())
}
