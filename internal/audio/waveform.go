package audio

import (
	"errors"
	"math"
)

var ErrEmptyWaveform = errors.New("waveform has no samples")

// Waveform holds decoded multi-channel PCM at a fixed sample rate. All
// channels have the same length; the sample rate never changes after load.
type Waveform struct {
	SampleRate int
	Samples    [][]float64 // one slice per channel
}

// New allocates a zeroed waveform with the given shape.
func New(sampleRate, channels, frames int) *Waveform {
	samples := make([][]float64, channels)
	for ch := range samples {
		samples[ch] = make([]float64, frames)
	}
	return &Waveform{SampleRate: sampleRate, Samples: samples}
}

// Channels returns the channel count.
func (w *Waveform) Channels() int {
	return len(w.Samples)
}

// Frames returns the per-channel sample count.
func (w *Waveform) Frames() int {
	if len(w.Samples) == 0 {
		return 0
	}
	return len(w.Samples[0])
}

// Duration returns the length in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate == 0 {
		return 0
	}
	return float64(w.Frames()) / float64(w.SampleRate)
}

// Slice returns per-channel views of the sample range [start, end).
// The backing arrays are shared; callers must not mutate them.
func (w *Waveform) Slice(start, end int) [][]float64 {
	out := make([][]float64, len(w.Samples))
	for ch := range w.Samples {
		out[ch] = w.Samples[ch][start:end]
	}
	return out
}

// Stats holds the normalization scalars computed from the channel-mean
// reference signal.
type Stats struct {
	Mean float64
	Std  float64
}

// RefStats computes the mean and standard deviation of the reference signal
// (the per-frame mean across channels). Separation models are trained on
// normalized input; these scalars invert the transform afterward.
func (w *Waveform) RefStats() Stats {
	frames := w.Frames()
	if frames == 0 {
		return Stats{Std: 1}
	}

	var sum float64
	ref := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var v float64
		for ch := range w.Samples {
			v += w.Samples[ch][i]
		}
		v /= float64(len(w.Samples))
		ref[i] = v
		sum += v
	}
	mean := sum / float64(frames)

	var sq float64
	for _, v := range ref {
		d := v - mean
		sq += d * d
	}
	// Sample standard deviation, matching the reference signal statistics
	// the model was trained against.
	var std float64
	if frames > 1 {
		std = math.Sqrt(sq / float64(frames-1))
	}
	if std == 0 {
		std = 1 // silent input; avoid dividing by zero
	}

	return Stats{Mean: mean, Std: std}
}

// Normalize returns a new waveform with the stats transform applied.
func (w *Waveform) Normalize(s Stats) *Waveform {
	out := New(w.SampleRate, w.Channels(), w.Frames())
	for ch := range w.Samples {
		for i, v := range w.Samples[ch] {
			out.Samples[ch][i] = (v - s.Mean) / s.Std
		}
	}
	return out
}

// Denormalize inverts the stats transform in place.
func (w *Waveform) Denormalize(s Stats) {
	for ch := range w.Samples {
		for i, v := range w.Samples[ch] {
			w.Samples[ch][i] = v*s.Std + s.Mean
		}
	}
}

// Resample converts the waveform to the target rate using linear
// interpolation. Returns the receiver unchanged when the rates match.
func (w *Waveform) Resample(targetRate int) *Waveform {
	if targetRate == w.SampleRate || w.Frames() == 0 {
		return w
	}

	ratio := float64(w.SampleRate) / float64(targetRate)
	frames := int(math.Ceil(float64(w.Frames()) * float64(targetRate) / float64(w.SampleRate)))
	out := New(targetRate, w.Channels(), frames)

	last := w.Frames() - 1
	for ch := range w.Samples {
		src := w.Samples[ch]
		for i := 0; i < frames; i++ {
			pos := float64(i) * ratio
			j := int(pos)
			if j >= last {
				out.Samples[ch][i] = src[last]
				continue
			}
			frac := pos - float64(j)
			out.Samples[ch][i] = src[j]*(1-frac) + src[j+1]*frac
		}
	}
	return out
}
