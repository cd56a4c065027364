package denoise

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseProfileMonotonicity(t *testing.T) {
	const half = 16
	p := NewNoiseProfile(half)

	power := make([]float64, half+1)
	for k := range power {
		power[k] = float64(k) + 1
	}

	for i := 0; i < 20; i++ {
		p.Learn(power)
	}

	for k := range power {
		assert.InDelta(t, power[k], p.Power()[k], 1e-9)
	}
	assert.Equal(t, float64(20), p.FramesLearned())
}

func TestNoiseProfileNotAvailableUntilLearned(t *testing.T) {
	p := NewNoiseProfile(8)
	assert.False(t, p.IsAvailable())

	p.Learn(make([]float64, 9))
	assert.True(t, p.IsAvailable())
}

func TestNoiseProfileReset(t *testing.T) {
	p := NewNoiseProfile(4)
	p.Learn([]float64{1, 2, 3, 4, 5})
	assert.True(t, p.IsAvailable())

	p.Reset()
	assert.False(t, p.IsAvailable())
	for _, v := range p.Power() {
		assert.Equal(t, 0.0, v)
	}
}

func TestNoiseProfileAveragesDistinctFrames(t *testing.T) {
	p := NewNoiseProfile(0)
	p.Learn([]float64{2})
	p.Learn([]float64{4})
	assert.InDelta(t, 3, p.Power()[0], 1e-9)
}
