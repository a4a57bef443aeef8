package agc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestGainStaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := New()
		n := rapid.IntRange(1, 500).Draw(t, "n")
		mag := rapid.Float64Range(1e-6, 1000).Draw(t, "mag")
		samples := make([]complex128, n)
		for i := range samples {
			samples[i] = complex(mag, 0)
		}
		a.Process(samples)
		assert.GreaterOrEqual(t, a.Gain(), minGain)
		assert.LessOrEqual(t, a.Gain(), maxGain)
	})
}

func TestGainRisesForWeakSignal(t *testing.T) {
	a := New()
	samples := make([]complex128, 20000)
	for i := range samples {
		samples[i] = complex(0.001, 0)
	}
	a.Process(samples)
	assert.Greater(t, a.Gain(), 1.0)
}

func TestGainConvergesTowardUnityMagnitude(t *testing.T) {
	a := New()
	for i := 0; i < 5; i++ {
		samples := make([]complex128, 5000)
		for j := range samples {
			samples[j] = complex(0.01, 0)
		}
		a.Process(samples)
	}
	samples := make([]complex128, 10)
	for i := range samples {
		samples[i] = complex(0.01, 0)
	}
	a.Process(samples)
	last := samples[len(samples)-1]
	mag := math.Hypot(real(last), imag(last))
	assert.InDelta(t, 1.0, mag, 0.3)
}

func TestAudioAGCGainStaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewAudioAGC()
		n := rapid.IntRange(1, 500).Draw(t, "n")
		mag := rapid.Float64Range(1e-6, 1000).Draw(t, "mag")
		samples := make([]float64, n)
		for i := range samples {
			samples[i] = mag
		}
		a.Process(samples)
		assert.GreaterOrEqual(t, a.Gain(), audioMinGain)
		assert.LessOrEqual(t, a.Gain(), audioMaxGain)
	})
}

func TestAudioAGCConvergesTowardUnityMagnitudeFasterThanIFAGC(t *testing.T) {
	audio := NewAudioAGC()
	ifagc := New()

	audioSamples := make([]float64, 1000)
	ifSamples := make([]complex128, 1000)
	for i := range audioSamples {
		audioSamples[i] = 0.01
		ifSamples[i] = complex(0.01, 0)
	}
	audio.Process(audioSamples)
	ifagc.Process(ifSamples)

	assert.Greater(t, audio.Gain(), ifagc.Gain(), "audio AGC's higher adapt rate should converge faster over equally many samples")
}
