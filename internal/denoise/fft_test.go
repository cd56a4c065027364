package denoise

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferencePlanRoundtrip(t *testing.T) {
	const n = 256
	plan := NewReferencePlan(n)

	signal := make([]float64, n)
	rng := rand.New(rand.NewSource(1))
	for i := range signal {
		signal[i] = rng.Float64()*2 - 1
	}

	hc := make([]float64, n)
	plan.Forward(signal, hc)

	out := make([]float64, n)
	plan.Inverse(hc, out)
	for i := range out {
		out[i] /= n
	}

	for i := range signal {
		assert.InDelta(t, signal[i], out[i], 1e-9)
	}
}

func TestReferencePlanParseval(t *testing.T) {
	const n = 128
	plan := NewReferencePlan(n)

	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * float64(i) * 5 / float64(n))
	}

	hc := make([]float64, n)
	plan.Forward(signal, hc)

	var timeEnergy float64
	for _, v := range signal {
		timeEnergy += v * v
	}

	half := n / 2
	freqEnergy := hc[0]*hc[0] + hc[half]*hc[half]
	for k := 1; k < half; k++ {
		freqEnergy += 2 * (hc[k]*hc[k] + hc[n-k]*hc[n-k])
	}
	freqEnergy /= float64(n)

	assert.InDelta(t, timeEnergy, freqEnergy, 1e-6)
}

func TestReferencePlanRejectsNonPowerOfTwo(t *testing.T) {
	require.Panics(t, func() { NewReferencePlan(100) })
}

func TestReferencePlanMatchesGonumPlan(t *testing.T) {
	const n = 64
	ref := NewReferencePlan(n)
	prod := NewGonumPlan(n)

	signal := make([]float64, n)
	for i := range signal {
		signal[i] = math.Cos(2 * math.Pi * float64(i) * 3 / float64(n))
	}

	refHC := make([]float64, n)
	prodHC := make([]float64, n)
	ref.Forward(signal, refHC)
	prod.Forward(signal, prodHC)

	for k := range refHC {
		assert.InDelta(t, refHC[k], prodHC[k], 1e-6, "bin %d", k)
	}
}
