package denoise

import "fmt"

// Params is the host-supplied parameter block, read once per Run call
// and treated as immutable for the duration of that block.
type Params struct {
	Enable          bool
	LearnNoise      bool
	ResidualListen  bool
	ReductionAmount float64 // [0,1], 1 = transparent
	WhiteningFactor float64 // [0,1]

	TransientThreshold  float64 // >= 1
	MaskingCeilingLimit float64 // dB
	ReleaseTimeMs       float64 // ms
	NoiseRescale        float64 // > 0

	// AdaptiveLearn, when set and LearnNoise is false, lets the engine
	// slowly track a drifting noise floor from frames the gain
	// estimator judges to carry little signal (gain near 1), instead
	// of relying solely on an operator-triggered learn pass.
	AdaptiveLearn bool
}

// DefaultParams returns a Params with every numeric knob at a sane,
// non-degenerate value. Hosts typically start here and override.
func DefaultParams() Params {
	return Params{
		Enable:              true,
		ReductionAmount:     1.0,
		WhiteningFactor:     0.0,
		TransientThreshold:  3.0,
		MaskingCeilingLimit: 25.0,
		ReleaseTimeMs:       150.0,
		NoiseRescale:        1.0,
	}
}

// Engine is the façade: it owns the STFT framer, the spectral
// processor, the noise profile, and the masking model, and wires the
// frame callback into the framer. An Engine is a value that owns every
// buffer it touches; instances are fully independent of one another.
type Engine struct {
	fftSize    int
	halfSize   int
	overlap    int
	hop        int
	sampleRate int

	stft      *STFT
	processor *SpectralProcessor
	noise     *NoiseProfile
	masking   *MaskingModel

	params Params

	maxBlockSize int
	scratchIn    []float64
	scratchOut   []float64
}

// NewEngine builds an engine around plan (the FFT primitive), with the
// given analysis/synthesis windows, overlap factor, and sample rate.
// maxBlockSize bounds the largest n_samples Run will ever be called
// with; all buffers are sized at construction so Run never allocates.
func NewEngine(plan Plan, analysisWindow, synthesisWindow WindowKind, overlap, sampleRate, maxBlockSize int) *Engine {
	fftSize := plan.Size()
	half := fftSize / 2
	hop := fftSize / overlap

	e := &Engine{
		fftSize:      fftSize,
		halfSize:     half,
		overlap:      overlap,
		hop:          hop,
		sampleRate:   sampleRate,
		noise:        NewNoiseProfile(half),
		masking:      NewMaskingModel(plan, sampleRate),
		params:       DefaultParams(),
		maxBlockSize: maxBlockSize,
		scratchIn:    make([]float64, maxBlockSize),
		scratchOut:   make([]float64, maxBlockSize),
	}
	e.processor = NewSpectralProcessor(fftSize, hop, sampleRate)

	window := NewWindowPair(analysisWindow, synthesisWindow, fftSize)
	e.stft = NewSTFT(plan, window, overlap, e.onFrame)

	return e
}

func (e *Engine) onFrame(hc, power, magnitude, phase []float64) {
	e.processor.Run(hc, power, magnitude, phase, e.noise, e.masking, e.params)
}

// Latency reports the engine's constant input latency in samples.
func (e *Engine) Latency() int { return e.stft.Latency() }

// SampleRate reports the sample rate the engine was constructed with.
func (e *Engine) SampleRate() int { return e.sampleRate }

// FFTSize reports the FFT size the engine was constructed with.
func (e *Engine) FFTSize() int { return e.fftSize }

// Run consumes nSamples of input and produces nSamples of output,
// applying params for the duration of this call. input and output must
// each have length >= nSamples and nSamples must not exceed the engine's
// maxBlockSize.
func (e *Engine) Run(input, output []float32, nSamples int, params Params) error {
	if nSamples > e.maxBlockSize {
		return fmt.Errorf("denoise: block of %d samples exceeds max block size %d", nSamples, e.maxBlockSize)
	}

	e.params = params

	in := e.scratchIn[:nSamples]
	out := e.scratchOut[:nSamples]
	for i := 0; i < nSamples; i++ {
		in[i] = float64(input[i])
	}

	e.stft.Run(in, out, nSamples)

	for i := 0; i < nSamples; i++ {
		output[i] = float32(out[i])
	}
	return nil
}

// ResetNoiseProfile discards the learned noise profile and the gain
// estimator / whitening history built on top of it, so a host can
// re-learn from scratch without rebuilding the engine.
func (e *Engine) ResetNoiseProfile() {
	e.noise.Reset()
	e.processor.Reset()
}

// NoiseProfile exposes the engine's noise profile for inspection and
// persistence. Callers must not mutate the returned profile while Run
// may be concurrently invoked.
func (e *Engine) NoiseProfile() *NoiseProfile { return e.noise }

// WetDry reports the processor's current soft-bypass crossfade level,
// for monitoring only; it is never fed back into processing decisions.
func (e *Engine) WetDry() float64 { return e.processor.wetDry }

// LastTransient reports whether the most recently estimated frame was
// flagged as a transient onset, for monitoring only.
func (e *Engine) LastTransient() bool { return e.processor.LastTransient() }
