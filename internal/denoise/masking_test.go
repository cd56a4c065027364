package denoise

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskingThresholdsLowerBound(t *testing.T) {
	const fftSize = 1024
	plan := NewReferencePlan(fftSize)
	model := NewMaskingModel(plan, 48000)

	half := fftSize / 2
	power := make([]float64, half+1)
	rng := rand.New(rand.NewSource(7))
	for k := range power {
		power[k] = rng.Float64()
	}

	thresholds := model.Thresholds(power)
	for k := 1; k <= half; k++ {
		assert.GreaterOrEqual(t, thresholds[k], model.absoluteThresholds[k], "bin %d", k)
	}
}

// TestMaskingSPLReferenceCalibration checks the defining property of
// spl_reference: applied to the same calibration sine it was derived
// from, every bin reads exactly REFERENCE_LEVEL dB SPL.
func TestMaskingSPLReferenceCalibration(t *testing.T) {
	const fftSize = 2048
	const sampleRate = 48000
	plan := NewReferencePlan(fftSize)
	model := NewMaskingModel(plan, sampleRate)

	half := fftSize / 2
	sine := make([]float64, fftSize)
	window := BuildWindow(Hann, fftSize)
	for k := range sine {
		sine[k] = math.Sin(2*math.Pi*float64(k)*atSineFreqHz/float64(sampleRate)) * window[k]
	}
	hc := make([]float64, fftSize)
	plan.Forward(sine, hc)

	power := make([]float64, half+1)
	magnitude := make([]float64, half+1)
	phase := make([]float64, half+1)
	getInfoFromBins(hc, fftSize, half, power, magnitude, phase)

	for k := 0; k <= half; k++ {
		if power[k] <= flMin {
			continue
		}
		dbSPL := 10*math.Log10(power[k]) + model.splReference[k]
		assert.InDelta(t, referenceLevelDBSPL, dbSPL, 1e-6, "bin %d", k)
	}
}

func TestTonalityFactorPureToneIsHigh(t *testing.T) {
	power := []float64{1e-12, 1e-12, 100, 1e-12, 1e-12}
	f := tonalityFactor(power, 0, 5, 5)
	assert.Greater(t, f, 0.5)
}

func TestTonalityFactorFlatSpectrumIsLow(t *testing.T) {
	power := make([]float64, 10)
	for i := range power {
		power[i] = 1.0
	}
	f := tonalityFactor(power, 0, 10, 10)
	assert.InDelta(t, 0, f, 1e-9)
}
