package denoise

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpectralProcessorDryWhenDisabled(t *testing.T) {
	const fftSize = 256
	half := fftSize / 2
	plan := NewReferencePlan(fftSize)
	model := NewMaskingModel(plan, 48000)
	noise := NewNoiseProfile(half)
	sp := NewSpectralProcessor(fftSize, fftSize/4, 48000)

	hc := make([]float64, fftSize)
	hc[10] = 3.0
	hc[fftSize-10] = 1.5
	original := append([]float64(nil), hc...)

	power := make([]float64, half+1)
	magnitude := make([]float64, half+1)
	phase := make([]float64, half+1)
	power[10] = hc[10]*hc[10] + hc[fftSize-10]*hc[fftSize-10]
	magnitude[10] = power[10]

	params := Params{Enable: false}
	for i := 0; i < 200; i++ {
		sp.Run(hc, power, magnitude, phase, noise, model, params)
	}

	for k := range hc {
		assert.InDelta(t, original[k], hc[k], 1e-6, "bin %d", k)
	}
}

func TestSpectralProcessorLearnNoiseIsDry(t *testing.T) {
	const fftSize = 256
	half := fftSize / 2
	plan := NewReferencePlan(fftSize)
	model := NewMaskingModel(plan, 48000)
	noise := NewNoiseProfile(half)
	sp := NewSpectralProcessor(fftSize, fftSize/4, 48000)

	hc := make([]float64, fftSize)
	hc[5] = 2.0
	original := append([]float64(nil), hc...)

	power := make([]float64, half+1)
	magnitude := make([]float64, half+1)
	phase := make([]float64, half+1)
	power[5] = 4.0
	magnitude[5] = 2.0

	params := Params{Enable: true, LearnNoise: true}
	for i := 0; i < 50; i++ {
		sp.Run(hc, power, magnitude, phase, noise, model, params)
	}

	assert.True(t, noise.IsAvailable())
	assert.Equal(t, float64(50), noise.FramesLearned())
	for k := range hc {
		assert.InDelta(t, original[k], hc[k], 1e-4, "bin %d", k)
	}
}

func TestSpectralProcessorSuppressesKnownNoise(t *testing.T) {
	const fftSize = 256
	half := fftSize / 2
	plan := NewReferencePlan(fftSize)
	model := NewMaskingModel(plan, 48000)
	noise := NewNoiseProfile(half)

	flatPower := make([]float64, half+1)
	for k := range flatPower {
		flatPower[k] = 0.01
	}
	for i := 0; i < 10; i++ {
		noise.Learn(flatPower)
	}

	sp := NewSpectralProcessor(fftSize, fftSize/4, 48000)

	hc := make([]float64, fftSize)
	for k := 1; k < half; k++ {
		hc[k] = 0.1
		hc[fftSize-k] = 0.0
	}
	power := make([]float64, half+1)
	magnitude := make([]float64, half+1)
	phase := make([]float64, half+1)
	for k := range power {
		power[k] = 0.01
		magnitude[k] = 0.1
	}

	params := Params{
		Enable:              true,
		ReductionAmount:     0,
		TransientThreshold:  3,
		MaskingCeilingLimit: 25,
		ReleaseTimeMs:       1,
		NoiseRescale:        1,
	}

	for i := 0; i < 30; i++ {
		sp.Run(hc, power, magnitude, phase, noise, model, params)
		for k := range power {
			power[k] = (hc[k]*hc[k] + hc[(fftSize-k)%fftSize]*hc[(fftSize-k)%fftSize])
			magnitude[k] = hc[k]
		}
	}

	for k := 1; k < half; k++ {
		assert.LessOrEqual(t, hc[k], 0.1, "bin %d should not be amplified", k)
	}
}
