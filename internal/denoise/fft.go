package denoise

import (
	"math"
	"math/cmplx"
)

// Plan is the opaque FFT primitive the engine depends on. Forward takes
// F real samples and writes F halfcomplex bins (index k holds the real
// part of bin k for 0<=k<=F/2, and the imaginary part of bin F-k for
// F/2<k<F, FFTW's R2HC packing). Inverse is its unnormalized adjoint:
// callers divide by Size() themselves, matching FFTW's HC2R convention
// and the explicit "/F" step in the STFT synthesis stage.
type Plan interface {
	Size() int
	Forward(timeDomain, halfcomplex []float64)
	Inverse(halfcomplex, timeDomain []float64)
}

// referencePlan is a pure-Go radix-2 Cooley-Tukey implementation used as
// the reference DFT in tests, per the design note that the FFT
// primitive should be swappable between a reference implementation and
// a production one. Production use goes through gonumPlan instead.
type referencePlan struct {
	n int

	cx       []complex128
	spectrum []complex128
	conj     []complex128
}

// NewReferencePlan returns a Plan backed by an in-process radix-2 FFT.
// n must be a power of two. All scratch buffers are allocated here so
// Forward and Inverse never allocate.
func NewReferencePlan(n int) Plan {
	if !isPowerOf2(n) {
		panic("denoise: fft size must be a power of 2")
	}
	return &referencePlan{
		n:        n,
		cx:       make([]complex128, n),
		spectrum: make([]complex128, n),
		conj:     make([]complex128, n),
	}
}

func (p *referencePlan) Size() int { return p.n }

func (p *referencePlan) Forward(timeDomain, halfcomplex []float64) {
	for i, v := range timeDomain[:p.n] {
		p.cx[i] = complex(v, 0)
	}
	fftRadix2(p.cx, p.spectrum)
	packHalfcomplex(p.spectrum, halfcomplex, p.n)
}

func (p *referencePlan) Inverse(halfcomplex, timeDomain []float64) {
	unpackHalfcomplex(halfcomplex, p.n, p.spectrum)

	// Conjugate-FFT-conjugate identity. fftRadix2 is unnormalized, so the
	// result already comes out scaled by N, matching HC2R's convention
	// (the caller divides by Size() itself).
	for i, v := range p.spectrum {
		p.conj[i] = cmplx.Conj(v)
	}
	fftRadix2(p.conj, p.cx)
	for i, v := range p.cx {
		timeDomain[i] = real(cmplx.Conj(v))
	}
}

// packHalfcomplex converts a full complex spectrum (conjugate-symmetric
// for real input) into FFTW's R2HC layout.
func packHalfcomplex(spectrum []complex128, out []float64, n int) {
	half := n / 2
	out[0] = real(spectrum[0])
	for k := 1; k < half; k++ {
		out[k] = real(spectrum[k])
		out[n-k] = imag(spectrum[k])
	}
	out[half] = real(spectrum[half])
}

// unpackHalfcomplex reconstructs the full conjugate-symmetric complex
// spectrum from an R2HC-packed buffer into out.
func unpackHalfcomplex(in []float64, n int, out []complex128) {
	half := n / 2
	out[0] = complex(in[0], 0)
	out[half] = complex(in[half], 0)
	for k := 1; k < half; k++ {
		out[k] = complex(in[k], in[n-k])
		out[n-k] = complex(in[k], -in[n-k])
	}
}

// fftRadix2 writes the FFT of x into out (both length n, n a power of
// two). out may not alias x.
func fftRadix2(x []complex128, out []complex128) {
	n := len(x)
	copy(out, x)

	bitReverse(out)

	for s := 1; s <= int(math.Log2(float64(n))); s++ {
		m := 1 << s
		wm := cmplx.Exp(complex(0, -2*math.Pi/float64(m)))

		for k := 0; k < n; k += m {
			w := complex(1.0, 0.0)
			for j := 0; j < m/2; j++ {
				t := w * out[k+j+m/2]
				u := out[k+j]
				out[k+j] = u + t
				out[k+j+m/2] = u - t
				w *= wm
			}
		}
	}
}

func bitReverse(x []complex128) {
	n := len(x)
	bits := int(math.Log2(float64(n)))
	for i := 0; i < n; i++ {
		j := reverseBits(i, bits)
		if j > i {
			x[i], x[j] = x[j], x[i]
		}
	}
}

func reverseBits(v, bits int) int {
	r := 0
	for i := 0; i < bits; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}

func isPowerOf2(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
