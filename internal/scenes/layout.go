package scenes

import (
	"math"

	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

// TargetDurations splits totalMs across descriptors by weight share
func TargetDurations(totalMs int64, descriptors []types.SceneDescriptor) []int64 {
	totalWeight := 0
	for _, d := range descriptors {
		totalWeight += d.Weight
	}

	targets := make([]int64, len(descriptors))
	if totalWeight == 0 {
		return targets
	}
	for i, d := range descriptors {
		targets[i] = int64(math.Round(float64(totalMs) * float64(d.Weight) / float64(totalWeight)))
	}
	return targets
}

// layout accumulates allocations end to end on the narration timeline
type layout struct {
	cursorMs int64
	allocs   []types.SceneAllocation
}

// place appends a scene starting at the cursor and advances it by min(target, clip)
func (l *layout) place(d types.SceneDescriptor, path string, targetMs, clipMs int64) types.SceneAllocation {
	start := l.cursorMs
	end := start + min(targetMs, clipMs)

	alloc := types.SceneAllocation{
		Text:               d.Text,
		Priority:           d.Priority,
		Weight:             d.Weight,
		Path:               path,
		StartMs:            start,
		EndMs:              end,
		TimestampMs:        (start + end) / 2,
		TargetMs:           targetMs,
		OriginalDurationMs: clipMs,
	}
	l.allocs = append(l.allocs, alloc)
	l.cursorMs = end
	return alloc
}
