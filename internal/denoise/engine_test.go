package denoise

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, maxBlock int) *Engine {
	t.Helper()
	const fftSize = 2048
	plan := NewReferencePlan(fftSize)
	return NewEngine(plan, Vorbis, Vorbis, 4, 48000, maxBlock)
}

func TestEngineSilenceInSilenceOut(t *testing.T) {
	e := newTestEngine(t, 4096)

	input := make([]float32, 4096)
	output := make([]float32, 4096)
	params := DefaultParams()

	require.NoError(t, e.Run(input, output, 4096, params))

	for i, v := range output {
		assert.InDelta(t, 0, v, 1e-7, "sample %d", i)
	}
}

func TestEngineSinePreservationWithoutLearnedNoise(t *testing.T) {
	e := newTestEngine(t, 4096)

	input := make([]float32, 4096)
	for i := range input {
		input[i] = float32(0.5 * math.Sin(2*math.Pi*1000*float64(i)/48000))
	}
	output := make([]float32, 4096)
	params := DefaultParams()

	require.NoError(t, e.Run(input, output, 4096, params))

	latency := e.Latency()
	for i := latency + e.FFTSize(); i < len(input); i++ {
		assert.InDelta(t, input[i-latency], output[i], 1e-3, "sample %d", i)
	}
}

func TestEngineLearnThenDenoiseWhiteNoise(t *testing.T) {
	e := newTestEngine(t, 48000*2)
	rng := rand.New(rand.NewSource(42))

	noiseOnly := make([]float32, 48000*2)
	for i := range noiseOnly {
		noiseOnly[i] = float32(rng.NormFloat64() * 0.1 / 3)
	}
	scratch := make([]float32, len(noiseOnly))
	learnParams := DefaultParams()
	learnParams.LearnNoise = true
	require.NoError(t, e.Run(noiseOnly, scratch, len(noiseOnly), learnParams))
	require.True(t, e.NoiseProfile().IsAvailable())

	mixed := make([]float32, 48000)
	for i := range mixed {
		mixed[i] = float32(rng.NormFloat64()*0.1/3 + 0.5*math.Sin(2*math.Pi*1000*float64(i)/48000))
	}
	out := make([]float32, len(mixed))
	applyParams := DefaultParams()
	applyParams.ReductionAmount = 1

	require.NoError(t, e.Run(mixed, out, len(mixed), applyParams))

	var outEnergy, inEnergy float64
	for i := e.Latency(); i < len(out); i++ {
		outEnergy += float64(out[i]) * float64(out[i])
		inEnergy += float64(mixed[i-e.Latency()]) * float64(mixed[i-e.Latency()])
	}
	assert.Less(t, outEnergy, inEnergy)
}

func TestEngineInvalidBlockSizeRejected(t *testing.T) {
	e := newTestEngine(t, 128)
	input := make([]float32, 256)
	output := make([]float32, 256)
	err := e.Run(input, output, 256, DefaultParams())
	assert.Error(t, err)
}

func TestEngineProfileRoundTrip(t *testing.T) {
	e := newTestEngine(t, 48000)

	power := make([]float64, e.FFTSize()/2+1)
	for k := range power {
		power[k] = 0.02
	}
	for i := 0; i < 5; i++ {
		e.NoiseProfile().Learn(power)
	}

	var buf bytes.Buffer
	require.NoError(t, SaveProfile(&buf, e))

	fresh := newTestEngine(t, 48000)
	ok, err := LoadProfile(&buf, fresh)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e.NoiseProfile().FramesLearned(), fresh.NoiseProfile().FramesLearned())
	for k := range power {
		assert.InDelta(t, e.NoiseProfile().Power()[k], fresh.NoiseProfile().Power()[k], 1e-9)
	}
}

func TestEngineProfileRestoreRejectsMismatchedFFTSize(t *testing.T) {
	big := NewEngine(NewReferencePlan(2048), Vorbis, Vorbis, 4, 48000, 2048)
	small := NewEngine(NewReferencePlan(1024), Vorbis, Vorbis, 4, 48000, 1024)

	power := make([]float64, big.FFTSize()/2+1)
	for i := 0; i < 3; i++ {
		big.NoiseProfile().Learn(power)
	}

	var buf bytes.Buffer
	require.NoError(t, SaveProfile(&buf, big))

	ok, err := LoadProfile(&buf, small)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, small.NoiseProfile().IsAvailable())
}

func TestEngineResetNoiseProfile(t *testing.T) {
	e := newTestEngine(t, 2048)
	power := make([]float64, e.FFTSize()/2+1)
	e.NoiseProfile().Learn(power)
	require.True(t, e.NoiseProfile().IsAvailable())

	e.ResetNoiseProfile()
	assert.False(t, e.NoiseProfile().IsAvailable())
}
