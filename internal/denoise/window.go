package denoise

import "math"

// WindowKind selects the analysis/synthesis window shape.
type WindowKind int

const (
	Hann WindowKind = iota
	Hamming
	Blackman
	Vorbis
)

// BuildWindow returns a window of length n for the given kind. All four
// use the periodic k/n form (not k/(n-1)) so that overlap-add with the
// matching hop size satisfies COLA; a symmetric window breaks that at
// the frame boundary.
func BuildWindow(kind WindowKind, n int) []float64 {
	w := make([]float64, n)
	for k := 0; k < n; k++ {
		p := float64(k) / float64(n)
		switch kind {
		case Hamming:
			w[k] = 0.54 - 0.46*math.Cos(2*math.Pi*p)
		case Blackman:
			w[k] = 0.42 - 0.5*math.Cos(2*math.Pi*p) + 0.08*math.Cos(4*math.Pi*p)
		case Vorbis:
			s := math.Sin(math.Pi * p)
			w[k] = math.Sin(math.Pi / 2 * s * s)
		default: // Hann
			w[k] = 0.5 - 0.5*math.Cos(2*math.Pi*p)
		}
	}
	return w
}

// WindowPair holds the analysis and synthesis windows for an STFT and
// the scalar that normalizes overlap-add back to unit gain.
type WindowPair struct {
	Analysis     []float64
	Synthesis    []float64
	OverlapScale float64
}

// NewWindowPair builds matching analysis/synthesis windows of length n
// and computes their overlap-add scale factor.
func NewWindowPair(analysisKind, synthesisKind WindowKind, n int) WindowPair {
	analysis := BuildWindow(analysisKind, n)
	synthesis := BuildWindow(synthesisKind, n)

	var sum float64
	for i := 0; i < n; i++ {
		sum += analysis[i] * synthesis[i]
	}

	return WindowPair{
		Analysis:     analysis,
		Synthesis:    synthesis,
		OverlapScale: sum / float64(n),
	}
}
