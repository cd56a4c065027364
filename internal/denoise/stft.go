package denoise

import "math"

// FrameCallback is invoked once per hop-sized cycle with the full
// halfcomplex buffer from the forward transform, plus the power,
// magnitude, and phase spectra the framer already derived from it. The
// callback may mutate halfcomplex in place (the spectral processor
// does); it must not resize any of the four slices.
type FrameCallback func(halfcomplex, power, magnitude, phase []float64)

// STFT maintains the input/output FIFOs and overlap-add state for a
// streaming short-time Fourier transform. One forward+inverse cycle
// fires every hop samples consumed.
type STFT struct {
	fftSize      int
	halfSize     int
	hop          int
	overlap      int
	inputLatency int
	readPosition int

	window WindowPair
	plan   Plan

	inFifo       []float64
	outFifo      []float64
	outputAccum  []float64
	scratchReal  []float64
	scratchHC    []float64

	power     []float64
	magnitude []float64
	phase     []float64

	onFrame FrameCallback
}

// NewSTFT builds an STFT framer for the given FFT size and overlap
// factor (hop = fftSize/overlap). onFrame is invoked with the
// halfcomplex buffer every hop samples.
func NewSTFT(plan Plan, window WindowPair, overlap int, onFrame FrameCallback) *STFT {
	fftSize := plan.Size()
	hop := fftSize / overlap
	inputLatency := fftSize - hop

	s := &STFT{
		fftSize:      fftSize,
		halfSize:     fftSize / 2,
		hop:          hop,
		overlap:      overlap,
		inputLatency: inputLatency,
		readPosition: inputLatency,
		window:       window,
		plan:         plan,
		inFifo:       make([]float64, fftSize),
		outFifo:      make([]float64, fftSize),
		outputAccum:  make([]float64, fftSize*2),
		scratchReal:  make([]float64, fftSize),
		scratchHC:    make([]float64, fftSize),
		power:        make([]float64, fftSize/2+1),
		magnitude:    make([]float64, fftSize/2+1),
		phase:        make([]float64, fftSize/2+1),
		onFrame:      onFrame,
	}
	return s
}

// Latency reports the constant input latency in samples.
func (s *STFT) Latency() int { return s.inputLatency }

// Run consumes nSamples of input and produces nSamples of output,
// firing the frame callback every hop samples as required.
func (s *STFT) Run(input, output []float64, nSamples int) {
	for i := 0; i < nSamples; i++ {
		s.inFifo[s.readPosition] = input[i]
		output[i] = s.outFifo[s.readPosition-s.inputLatency]
		s.readPosition++

		if s.readPosition >= s.fftSize {
			s.readPosition = s.inputLatency

			copy(s.scratchReal, s.inFifo)
			for k := 0; k < s.fftSize; k++ {
				s.scratchReal[k] *= s.window.Analysis[k]
			}
			s.plan.Forward(s.scratchReal, s.scratchHC)

			getInfoFromBins(s.scratchHC, s.fftSize, s.halfSize, s.power, s.magnitude, s.phase)

			if s.onFrame != nil {
				s.onFrame(s.scratchHC, s.power, s.magnitude, s.phase)
			}

			s.plan.Inverse(s.scratchHC, s.scratchReal)
			for k := 0; k < s.fftSize; k++ {
				s.scratchReal[k] /= float64(s.fftSize)
			}
			norm := s.window.OverlapScale * float64(s.overlap)
			for k := 0; k < s.fftSize; k++ {
				s.scratchReal[k] = (s.window.Synthesis[k] * s.scratchReal[k]) / norm
			}
			for k := 0; k < s.fftSize; k++ {
				s.outputAccum[k] += s.scratchReal[k]
			}

			copy(s.outFifo[:s.hop], s.outputAccum[:s.hop])
			// The tail beyond fftSize is never written to by the add step
			// above, so shifting the whole 2F buffer left by hop keeps the
			// upper half zero without needing an explicit clear.
			copy(s.outputAccum, s.outputAccum[s.hop:])

			copy(s.inFifo[:s.inputLatency], s.inFifo[s.hop:s.hop+s.inputLatency])
		}
	}
}

// getInfoFromBins splits a halfcomplex buffer into power, magnitude,
// and phase spectra of length half+1.
func getInfoFromBins(hc []float64, fftSize, half int, power, magnitude, phase []float64) {
	realP := hc[0]
	power[0] = realP * realP
	magnitude[0] = realP
	phase[0] = math.Atan2(realP, 0)

	for k := 1; k <= half; k++ {
		realP = hc[k]
		imagN := hc[fftSize-k]

		var p, m, ph float64
		if k < half {
			p = realP*realP + imagN*imagN
			m = math.Sqrt(p)
			ph = math.Atan2(realP, imagN)
		} else {
			p = realP * realP
			m = realP
			ph = math.Atan2(realP, 0)
		}
		power[k] = p
		magnitude[k] = m
		phase[k] = ph
	}
}
