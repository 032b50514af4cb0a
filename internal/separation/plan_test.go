package separation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanChunksTwoChunkScenario(t *testing.T) {
	// 25 seconds at 44.1kHz with a 10s segment and 1s overlap.
	sr := 44100
	frames := 25 * sr
	chunkLen := int(float64(sr) * 10 * (1 + 1.0))
	overlap := sr

	plan := planChunks(frames, chunkLen, overlap)
	require.GreaterOrEqual(t, len(plan), 2)

	first := plan[0]
	last := plan[len(plan)-1]
	assert.Equal(t, 0, first.start)
	assert.Equal(t, 0, first.fadeIn)
	assert.Equal(t, frames, last.end)
	assert.Equal(t, 0, last.fadeOut)
}

func TestPlanChunksFadeRoles(t *testing.T) {
	plan := planChunks(100_000, 10_000, 1_000)
	require.Greater(t, len(plan), 2)

	for i, span := range plan {
		switch {
		case i == 0:
			assert.Equal(t, 0, span.fadeIn, "first chunk has no fade-in")
			assert.Equal(t, 1_000, span.fadeOut)
		case i == len(plan)-1:
			assert.Equal(t, 1_000, span.fadeIn)
			assert.Equal(t, 0, span.fadeOut, "last chunk has no fade-out")
		default:
			assert.Equal(t, 1_000, span.fadeIn)
			assert.Equal(t, 1_000, span.fadeOut)
		}
	}
}

func TestPlanChunksCoverageAndOverlap(t *testing.T) {
	frames := 123_457
	chunkLen := 20_000
	overlap := 2_000

	plan := planChunks(frames, chunkLen, overlap)
	require.NotEmpty(t, plan)

	// Every consecutive pair overlaps by exactly overlap frames.
	for i := 1; i < len(plan); i++ {
		assert.Equal(t, overlap, plan[i-1].end-plan[i].start,
			"overlap between chunk %d and %d", i-1, i)
		assert.Greater(t, plan[i].end, plan[i].start)
	}

	// Union covers every sample at least once.
	covered := make([]int, frames)
	for _, span := range plan {
		for i := span.start; i < span.end; i++ {
			covered[i]++
		}
	}
	for i, c := range covered {
		require.GreaterOrEqual(t, c, 1, "sample %d uncovered", i)
	}

	assert.Equal(t, frames, plan[len(plan)-1].end)
}

func TestPlanChunksZeroOverlap(t *testing.T) {
	plan := planChunks(25_000, 10_000, 0)
	require.Len(t, plan, 3)

	for i, span := range plan {
		assert.Equal(t, 0, span.fadeIn)
		assert.Equal(t, 0, span.fadeOut)
		if i > 0 {
			assert.Equal(t, plan[i-1].end, span.start)
		}
	}
	assert.Equal(t, 25_000, plan[2].end)
}
