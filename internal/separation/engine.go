package separation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/simpledj/api/internal/audio"
)

// Engine drives the separation model across overlapping windows of a
// waveform and reconstructs full-length stems with linear crossfades at the
// window boundaries.
type Engine struct {
	model          Model
	segmentSeconds float64
	overlapSeconds float64
	log            *zap.SugaredLogger
}

func NewEngine(model Model, segmentSeconds, overlapSeconds float64, log *zap.SugaredLogger) *Engine {
	return &Engine{
		model:          model,
		segmentSeconds: segmentSeconds,
		overlapSeconds: overlapSeconds,
		log:            log,
	}
}

// Separate splits the waveform into stems. Every returned waveform matches
// the input's channel count and length. Any chunk-level inference failure
// aborts the whole operation; no partial stems are returned.
func (e *Engine) Separate(ctx context.Context, wf *audio.Waveform) (map[string]*audio.Waveform, error) {
	frames := wf.Frames()
	if frames == 0 {
		return nil, audio.ErrEmptyWaveform
	}

	stats := wf.RefStats()
	norm := wf.Normalize(stats)

	sr := wf.SampleRate
	chunkLen := int(float64(sr) * e.segmentSeconds * (1 + e.overlapSeconds))
	overlapFrames := int(e.overlapSeconds * float64(sr))

	var out map[string]*audio.Waveform
	var err error
	if frames <= chunkLen {
		// Short input: one forward pass, no chunking overhead.
		out, err = e.separateWhole(ctx, norm)
	} else {
		out, err = e.separateChunked(ctx, norm, chunkLen, overlapFrames)
	}
	if err != nil {
		return nil, err
	}

	for _, stem := range out {
		stem.Denormalize(stats)
	}
	return out, nil
}

func (e *Engine) separateWhole(ctx context.Context, norm *audio.Waveform) (map[string]*audio.Waveform, error) {
	frames := norm.Frames()
	res, err := e.model.Process(ctx, norm.Slice(0, frames))
	if err != nil {
		return nil, fmt.Errorf("separation failed: %w", err)
	}
	if err := e.checkShape(res, norm.Channels(), frames); err != nil {
		return nil, err
	}

	out := make(map[string]*audio.Waveform, len(res))
	for _, name := range e.model.Sources() {
		stem := audio.New(norm.SampleRate, norm.Channels(), frames)
		for ch := range stem.Samples {
			copy(stem.Samples[ch], res[name][ch])
		}
		out[name] = stem
	}
	return out, nil
}

func (e *Engine) separateChunked(ctx context.Context, norm *audio.Waveform, chunkLen, overlapFrames int) (map[string]*audio.Waveform, error) {
	frames := norm.Frames()
	channels := norm.Channels()
	plan := planChunks(frames, chunkLen, overlapFrames)
	e.log.Debugw("separating in chunks",
		"frames", frames, "chunks", len(plan), "chunk_len", chunkLen, "overlap", overlapFrames)

	out := make(map[string]*audio.Waveform, len(e.model.Sources()))
	for _, name := range e.model.Sources() {
		out[name] = audio.New(norm.SampleRate, channels, frames)
	}

	for _, span := range plan {
		res, err := e.model.Process(ctx, norm.Slice(span.start, span.end))
		if err != nil {
			return nil, fmt.Errorf("separation failed at sample %d: %w", span.start, err)
		}
		if err := e.checkShape(res, channels, span.end-span.start); err != nil {
			return nil, err
		}

		for _, name := range e.model.Sources() {
			acc := out[name]
			for ch := 0; ch < channels; ch++ {
				src := res[name][ch]
				dst := acc.Samples[ch][span.start:span.end]
				for i := range src {
					dst[i] += src[i] * fadeWeight(i, len(src), span.fadeIn, span.fadeOut)
				}
			}
		}
	}
	return out, nil
}

// fadeWeight returns the linear crossfade weight for sample i of an n-sample
// chunk. Fade-out of one chunk and fade-in of the next sum to exactly 1
// across the shared overlap region.
func fadeWeight(i, n, fadeIn, fadeOut int) float64 {
	w := 1.0
	if i < fadeIn {
		if fadeIn > 1 {
			w *= float64(i) / float64(fadeIn-1)
		} else {
			w = 0
		}
	}
	if fadeOut > 0 {
		tail := n - fadeOut
		if i >= tail {
			if fadeOut > 1 {
				w *= 1 - float64(i-tail)/float64(fadeOut-1)
			}
			// A one-sample fade-out keeps full weight; the matching
			// one-sample fade-in contributes zero.
		}
	}
	return w
}

func (e *Engine) checkShape(res map[string][][]float64, channels, frames int) error {
	for _, name := range e.model.Sources() {
		chunk, ok := res[name]
		if !ok {
			return fmt.Errorf("model returned no output for source %q", name)
		}
		if len(chunk) != channels {
			return fmt.Errorf("source %q: got %d channels, want %d", name, len(chunk), channels)
		}
		for ch := range chunk {
			if len(chunk[ch]) != frames {
				return fmt.Errorf("source %q channel %d: got %d samples, want %d", name, ch, len(chunk[ch]), frames)
			}
		}
	}
	return nil
}
