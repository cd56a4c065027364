package denoise

import "math"

const whiteningFloor = 0.02

// SpectralProcessor orchestrates one frame of denoising: it turns the
// gain estimate and residual handling into a single real scale factor
// per bin and applies it to both halfcomplex entries of that bin's
// pair, so the inverse FFT never needs magnitude/phase reconstruction.
// It also owns the soft-bypass wet/dry crossfade and the residual
// whitening state, both of which persist across frames.
type SpectralProcessor struct {
	fftSize    int
	halfSize   int
	sampleRate int
	hop        int

	wetDry       float64
	wetDryTarget float64
	tau          float64

	residualMax          []float64
	whiteningWindowCount int
	maxDecay             float64

	scale []float64 // scratch, reused by Run to avoid per-frame allocation

	gain *GainEstimator
}

// adaptiveLearnGainThreshold is how close to unity a frame's mean gain
// must be before AdaptiveLearn treats it as noise-only and folds it
// into the profile.
const adaptiveLearnGainThreshold = 0.95

// adaptiveLearnAlpha is the EMA rate AdaptiveLearn feeds to
// NoiseProfile.LearnSlow.
const adaptiveLearnAlpha = 0.01

// NewSpectralProcessor builds a processor for the given FFT size, hop,
// and sample rate. tau and maxDecay are the fixed time constants from
// the data model (soft-bypass crossfade and whitening decay).
func NewSpectralProcessor(fftSize, hop, sampleRate int) *SpectralProcessor {
	half := fftSize / 2
	tau := 1 - math.Exp(-2*math.Pi*25*64/float64(sampleRate))
	maxDecay := math.Exp(-1000 / ((1000 * float64(sampleRate)) / float64(hop)))

	return &SpectralProcessor{
		fftSize:      fftSize,
		halfSize:     half,
		sampleRate:   sampleRate,
		hop:          hop,
		tau:          tau,
		maxDecay:     maxDecay,
		residualMax:  make([]float64, half+1),
		scale:        make([]float64, half+1),
		gain:         NewGainEstimator(half),
	}
}

// Reset clears whitening and gain-estimator history, used when the
// engine's noise profile is reset. The soft-bypass crossfade level is
// left unchanged.
func (sp *SpectralProcessor) Reset() {
	for k := range sp.residualMax {
		sp.residualMax[k] = 0
	}
	sp.whiteningWindowCount = 0
	sp.gain.Reset()
}

// Run applies one frame of denoising to hc in place, per the frame
// callback contract: hc is a halfcomplex buffer of length fftSize,
// power/magnitude/phase are the spectra the framer derived from it.
func (sp *SpectralProcessor) Run(hc, power, magnitude, phase []float64, noise *NoiseProfile, model *MaskingModel, params Params) {
	_ = phase // preserved automatically by scaling the halfcomplex pair

	target := 0.0
	if params.Enable {
		target = 1.0
	}
	sp.wetDryTarget = target
	sp.wetDry += sp.tau*(sp.wetDryTarget-sp.wetDry) + flMin

	isEmpty := true
	for k := 0; k <= sp.halfSize; k++ {
		if power[k] > flMin {
			isEmpty = false
			break
		}
	}

	scale := sp.scale
	for k := range scale {
		scale[k] = 1
	}

	if !isEmpty {
		switch {
		case params.LearnNoise:
			noise.Learn(power)
		case noise.IsAvailable():
			gainParams := GainParams{
				TransientThreshold:  params.TransientThreshold,
				MaskingCeilingLimit: params.MaskingCeilingLimit,
				ReleaseTimeMs:       params.ReleaseTimeMs,
				NoiseRescale:        params.NoiseRescale,
			}
			gain := sp.gain.Estimate(power, noise.Power(), model, gainParams, sp.sampleRate, sp.hop)
			sp.applyResidual(gain, magnitude, params, scale)
			if params.AdaptiveLearn && meanGain(gain) >= adaptiveLearnGainThreshold {
				noise.LearnSlow(power, adaptiveLearnAlpha)
			}
		case params.AdaptiveLearn:
			noise.LearnSlow(power, adaptiveLearnAlpha)
		}
	}

	for k := range scale {
		scale[k] = (1 - sp.wetDry) + sp.wetDry*scale[k]
	}

	half := sp.halfSize
	hc[0] *= scale[0]
	hc[half] *= scale[half]
	for k := 1; k < half; k++ {
		hc[k] *= scale[k]
		hc[sp.fftSize-k] *= scale[k]
	}
}

// LastTransient reports whether the most recent frame that reached the
// gain estimator (i.e. had an available noise profile) was flagged as a
// transient onset, for monitoring only.
func (sp *SpectralProcessor) LastTransient() bool { return sp.gain.LastTransient() }

func meanGain(gain []float64) float64 {
	sum := 0.0
	for _, v := range gain {
		sum += v
	}
	return sum / float64(len(gain))
}

// applyResidual fills scale[k] with the ratio of the processed bin's
// magnitude to the original bin's magnitude, covering the denoised,
// residual-whitening, residual-listen, and reduction-amount paths.
func (sp *SpectralProcessor) applyResidual(gain, magnitude []float64, params Params, scale []float64) {
	w := clamp(params.WhiteningFactor, 0, 1)
	reduction := clamp(params.ReductionAmount, 0, 1)

	for k := 0; k <= sp.halfSize; k++ {
		resMag := magnitude[k] * (1 - gain[k])

		if w > 0 {
			floor := math.Max(resMag, whiteningFloor)
			if sp.whiteningWindowCount == 0 {
				sp.residualMax[k] = floor
			} else {
				sp.residualMax[k] = math.Max(floor, sp.residualMax[k]*sp.maxDecay)
			}

			whitened := 0.0
			if sp.residualMax[k] > flMin {
				whitened = resMag / sp.residualMax[k]
			}
			resMag = (1-w)*resMag + w*whitened
		}

		var outMag float64
		if params.ResidualListen {
			outMag = resMag
		} else {
			outMag = gain[k]*magnitude[k] + reduction*resMag
		}

		if magnitude[k] > flMin {
			scale[k] = outMag / magnitude[k]
		} else {
			scale[k] = 0
		}
	}

	sp.whiteningWindowCount++
}
