package denoise

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ProfileRecord is the external, persistable form of a noise profile.
// The reference LV2 implementation this engine descends from copies
// the profile array with a memcpy sized off the wrong variable and
// restores it without checking the stored FFT size against the live
// engine; both bugs are designed out here by storing an explicit
// length and validating fft_size before any state mutation.
type ProfileRecord struct {
	FFTSize       int       `yaml:"fft_size"`
	FramesLearned float64   `yaml:"frames_learned"`
	Values        []float64 `yaml:"values"`
}

// SaveProfile snapshots e's noise profile to w. The caller is
// responsible for making sure Run is not concurrently executing while
// the snapshot is taken, per the engine's concurrency contract.
func SaveProfile(w io.Writer, e *Engine) error {
	power := e.NoiseProfile().Power()
	values := make([]float64, len(power))
	copy(values, power)

	rec := ProfileRecord{
		FFTSize:       e.FFTSize(),
		FramesLearned: e.NoiseProfile().FramesLearned(),
		Values:        values,
	}
	return yaml.NewEncoder(w).Encode(rec)
}

// LoadProfile restores a noise profile from r into e. It returns
// (false, nil) without modifying e's state if the stored fft_size
// doesn't match the engine's, and (false, err) if the record can't be
// parsed at all.
func LoadProfile(r io.Reader, e *Engine) (bool, error) {
	var rec ProfileRecord
	if err := yaml.NewDecoder(r).Decode(&rec); err != nil {
		return false, fmt.Errorf("denoise: decode profile: %w", err)
	}

	if rec.FFTSize != e.FFTSize() {
		return false, nil
	}
	if len(rec.Values) != e.halfSize+1 {
		return false, nil
	}

	profile := e.NoiseProfile()
	copy(profile.noise, rec.Values)
	profile.framesLearned = rec.FramesLearned
	return true, nil
}
