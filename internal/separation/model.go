package separation

import "context"

// Model is the narrow inference contract consumed by the engine: a
// fixed-length multi-channel chunk in, one equally shaped chunk per source
// out. Implementations must be safe for concurrent use and must not be
// mutated per call.
type Model interface {
	// Sources returns the stem names the model produces, e.g.
	// drums, bass, vocals, other.
	Sources() []string

	// SampleRate returns the rate the model expects input at.
	SampleRate() int

	// Process separates one chunk. Every returned source must have the
	// same channel count and length as the input chunk.
	Process(ctx context.Context, chunk [][]float64) (map[string][][]float64, error)
}
