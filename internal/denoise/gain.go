package denoise

import "math"

// Gain estimator tuning constants. The specification leaves the exact
// oversubtraction mapping and transient statistic as an implementer
// choice with documented endpoints; these are that choice, recorded
// here rather than scattered as magic numbers.
const (
	oversubtractMin = 1.0
	oversubtractMax = 6.0

	transientBaselineAlpha = 0.1
	transientOnsetBias     = 0.5

	gainEpsilon = 1e-12
)

// GainParams are the host-supplied knobs that shape one frame's gain
// estimate. Values are read once per Engine.Run call and clamped here,
// never propagated invalid.
type GainParams struct {
	TransientThreshold  float64 // sensitivity of onset preservation, >= 1
	MaskingCeilingLimit float64 // dB, caps oversubtraction where masking is high
	ReleaseTimeMs       float64 // release time constant, ms
	NoiseRescale        float64 // global multiplier on learned noise power
}

// GainEstimator carries the per-bin smoothing history and transient
// baseline across frames. One instance per engine; not safe for
// concurrent frames.
type GainEstimator struct {
	halfSize int

	prevGain      []float64
	prevPower     []float64
	gainOut       []float64 // scratch, reused by Estimate to avoid per-frame allocation
	deltaBaseline float64
	havePrevPower bool
	lastTransient bool
}

// NewGainEstimator allocates estimator state for a spectrum of length
// half+1.
func NewGainEstimator(half int) *GainEstimator {
	return &GainEstimator{
		halfSize:  half,
		prevGain:  make([]float64, half+1),
		prevPower: make([]float64, half+1),
		gainOut:   make([]float64, half+1),
	}
}

// Estimate computes gain[0..half] in [0,1] for one frame, following the
// masking-driven spectral subtraction described in the gain estimator
// component: oversubtraction scaled by the masking threshold, transient
// bias toward unity gain, and asymmetric (release-only) smoothing.
func (g *GainEstimator) Estimate(power, noise []float64, model *MaskingModel, p GainParams, sampleRate, hop int) []float64 {
	thresholds := model.Thresholds(power)

	ceiling := p.MaskingCeilingLimit
	if ceiling <= 0 {
		ceiling = 1
	}
	rescale := p.NoiseRescale
	if rescale <= 0 {
		rescale = 1
	}
	transientThreshold := p.TransientThreshold
	if transientThreshold < 1 {
		transientThreshold = 1
	}

	delta := 0.0
	for k := 0; k <= g.halfSize; k++ {
		if g.havePrevPower {
			if d := power[k] - g.prevPower[k]; d > 0 {
				delta += d
			}
		}
	}
	transient := false
	if g.havePrevPower {
		g.deltaBaseline += transientBaselineAlpha * (delta - g.deltaBaseline)
		transient = g.deltaBaseline > 0 && delta > transientThreshold*g.deltaBaseline
	}
	copy(g.prevPower, power)
	g.havePrevPower = true
	g.lastTransient = transient

	releaseTimeSec := p.ReleaseTimeMs / 1000
	if releaseTimeSec <= 0 {
		releaseTimeSec = gainEpsilon
	}
	releaseCoef := math.Exp(-1 / (releaseTimeSec * float64(sampleRate) / float64(hop)))

	for k := 0; k <= g.halfSize; k++ {
		ratio := clamp(thresholds[k]/ceiling, 0, 1)
		alpha := clamp(oversubtractMax-(oversubtractMax-oversubtractMin)*ratio, oversubtractMin, oversubtractMax)

		scaledNoise := rescale * alpha * noise[k]

		raw := 1 - scaledNoise/math.Max(power[k], gainEpsilon)
		if raw < 0 {
			raw = 0
		}
		if transient {
			raw += (1 - raw) * transientOnsetBias
		}

		smoothed := math.Max(raw, releaseCoef*g.prevGain[k])
		g.gainOut[k] = clamp(smoothed, 0, 1)
	}

	copy(g.prevGain, g.gainOut)
	return g.gainOut
}

// LastTransient reports whether the most recent Estimate call flagged
// its frame as a transient onset, for monitoring only.
func (g *GainEstimator) LastTransient() bool { return g.lastTransient }

// Reset clears smoothing and transient history, used when the engine's
// noise profile is reset so stale gain history doesn't bleed across an
// unrelated noise floor.
func (g *GainEstimator) Reset() {
	for k := range g.prevGain {
		g.prevGain[k] = 0
		g.prevPower[k] = 0
		g.gainOut[k] = 0
	}
	g.deltaBaseline = 0
	g.havePrevPower = false
	g.lastTransient = false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
