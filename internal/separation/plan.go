package separation

// chunkSpan is one window of the chunk plan. Fade lengths are assigned by
// role: the first chunk has no fade-in, the final chunk has no fade-out,
// interior chunks have both.
type chunkSpan struct {
	start   int
	end     int
	fadeIn  int
	fadeOut int
}

// planChunks covers [0, frames) with windows of chunkLen samples where every
// consecutive pair overlaps by overlapFrames. The final window is clamped so
// its end lands on frames exactly. Callers handle the single-window case
// (frames <= chunkLen) before planning.
func planChunks(frames, chunkLen, overlapFrames int) []chunkSpan {
	step := chunkLen - overlapFrames

	var plan []chunkSpan
	for start := 0; start < frames-overlapFrames; start += step {
		span := chunkSpan{
			start:   start,
			end:     start + chunkLen,
			fadeOut: overlapFrames,
		}
		if start > 0 {
			span.fadeIn = overlapFrames
		}
		if span.end >= frames {
			span.end = frames
			span.fadeOut = 0
		}
		plan = append(plan, span)
	}
	return plan
}
