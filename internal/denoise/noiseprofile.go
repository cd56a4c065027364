package denoise

// NoiseProfile holds the running estimate of the noise floor's power
// spectrum. It is built up by Learn over a span of noise-only frames and
// then held fixed (or, under AdaptiveLearn, nudged slowly) while the
// gain estimator subtracts it from incoming frames.
type NoiseProfile struct {
	noise         []float64
	framesLearned float64
}

// NewNoiseProfile allocates a profile for a spectrum of length half+1.
func NewNoiseProfile(half int) *NoiseProfile {
	return &NoiseProfile{noise: make([]float64, half+1)}
}

// Learn folds one frame's power spectrum into the cumulative mean noise
// estimate. Called once per hop while the host has LearnNoise set.
func (p *NoiseProfile) Learn(power []float64) {
	if p.framesLearned == 0 {
		copy(p.noise, power)
		p.framesLearned = 1
		return
	}
	p.framesLearned++
	for k := range p.noise {
		p.noise[k] = ((p.framesLearned-1)*p.noise[k] + power[k]) / p.framesLearned
	}
}

// LearnSlow folds one frame into the estimate with an exponential decay
// instead of a cumulative mean, so a profile learned this way keeps
// tracking a drifting noise floor rather than converging and freezing.
// Used by AdaptiveLearn on frames the gain estimator judges noise-only.
func (p *NoiseProfile) LearnSlow(power []float64, alpha float64) {
	if p.framesLearned == 0 {
		copy(p.noise, power)
		p.framesLearned = 1
		return
	}
	p.framesLearned++
	for k := range p.noise {
		p.noise[k] += alpha * (power[k] - p.noise[k])
	}
}

// IsAvailable reports whether at least one frame has been learned.
func (p *NoiseProfile) IsAvailable() bool {
	return p.framesLearned > 0
}

// Reset discards the learned profile, returning the estimator to its
// initial zero state.
func (p *NoiseProfile) Reset() {
	for k := range p.noise {
		p.noise[k] = 0
	}
	p.framesLearned = 0
}

// Power returns the learned noise power spectrum.
func (p *NoiseProfile) Power() []float64 {
	return p.noise
}

// FramesLearned reports how many frames have contributed to the profile.
func (p *NoiseProfile) FramesLearned() float64 {
	return p.framesLearned
}
