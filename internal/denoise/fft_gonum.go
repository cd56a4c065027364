package denoise

import "gonum.org/v1/gonum/dsp/fourier"

// gonumPlan backs production use of Engine with gonum's real FFT,
// repacked into the same R2HC halfcomplex layout referencePlan uses so
// the rest of the engine never needs to know which backend is active.
type gonumPlan struct {
	n   int
	fft *fourier.FFT

	coeffs []complex128 // scratch for both Forward's output and Inverse's input
	seq    []float64    // scratch for Inverse's output
}

// NewGonumPlan returns a Plan backed by gonum.org/v1/gonum/dsp/fourier.
// This is the production FFT backend; referencePlan is reserved for
// tests that want a from-scratch numerical check. Scratch buffers are
// allocated here so Forward and Inverse never allocate.
func NewGonumPlan(n int) Plan {
	if !isPowerOf2(n) {
		panic("denoise: fft size must be a power of 2")
	}
	return &gonumPlan{
		n:      n,
		fft:    fourier.NewFFT(n),
		coeffs: make([]complex128, n/2+1),
		seq:    make([]float64, n),
	}
}

func (p *gonumPlan) Size() int { return p.n }

func (p *gonumPlan) Forward(timeDomain, halfcomplex []float64) {
	half := p.n / 2
	coeffs := p.fft.Coefficients(p.coeffs, timeDomain[:p.n])

	halfcomplex[0] = real(coeffs[0])
	halfcomplex[half] = real(coeffs[half])
	for k := 1; k < half; k++ {
		halfcomplex[k] = real(coeffs[k])
		halfcomplex[p.n-k] = imag(coeffs[k])
	}
}

func (p *gonumPlan) Inverse(halfcomplex, timeDomain []float64) {
	half := p.n / 2
	p.coeffs = p.coeffs[:half+1]
	p.coeffs[0] = complex(halfcomplex[0], 0)
	p.coeffs[half] = complex(halfcomplex[half], 0)
	for k := 1; k < half; k++ {
		p.coeffs[k] = complex(halfcomplex[k], halfcomplex[p.n-k])
	}

	// Sequence is the unnormalized inverse (result scaled by n), matching
	// the HC2R convention referencePlan and the STFT synthesis stage expect.
	out := p.fft.Sequence(p.seq, p.coeffs)
	copy(timeDomain, out)
}
