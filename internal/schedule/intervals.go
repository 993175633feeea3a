package schedule

import (
	"sort"

	"slotnik/internal/models"
)

// Interval algebra over half-open minute-of-day windows. All functions
// are pure and return fresh slices; inputs are never mutated, so callers
// may reuse them across repeated calls.

// Merge sorts windows by start and folds overlapping or boundary-touching
// neighbours into one. Touching windows (next.start == current.end) merge
// so the result never contains zero-length gaps.
func Merge(windows []models.TimeWindow) []models.TimeWindow {
	if len(windows) == 0 {
		return nil
	}

	sorted := make([]models.TimeWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartMinute == sorted[j].StartMinute {
			return sorted[i].EndMinute < sorted[j].EndMinute
		}
		return sorted[i].StartMinute < sorted[j].StartMinute
	})

	merged := []models.TimeWindow{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.StartMinute <= last.EndMinute {
			if w.EndMinute > last.EndMinute {
				last.EndMinute = w.EndMinute
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// Subtract removes [blockStart, blockEnd) from every window. A window is
// kept, dropped, trimmed at either side or split in two; ordering and
// non-overlap of the input are preserved on output.
func Subtract(windows []models.TimeWindow, blockStart, blockEnd int) []models.TimeWindow {
	if blockEnd <= blockStart {
		out := make([]models.TimeWindow, len(windows))
		copy(out, windows)
		return out
	}

	var out []models.TimeWindow
	for _, w := range windows {
		switch {
		case blockEnd <= w.StartMinute || blockStart >= w.EndMinute:
			// no overlap
			out = append(out, w)
		case blockStart <= w.StartMinute && blockEnd >= w.EndMinute:
			// fully covered
		case blockStart > w.StartMinute && blockEnd < w.EndMinute:
			// block splits the middle
			out = append(out,
				models.TimeWindow{StartMinute: w.StartMinute, EndMinute: blockStart},
				models.TimeWindow{StartMinute: blockEnd, EndMinute: w.EndMinute},
			)
		case blockStart <= w.StartMinute:
			// block trims the head
			out = append(out, models.TimeWindow{StartMinute: blockEnd, EndMinute: w.EndMinute})
		default:
			// block trims the tail
			out = append(out, models.TimeWindow{StartMinute: w.StartMinute, EndMinute: blockStart})
		}
	}
	return out
}

// ContainedIn reports whether [start, end) lies entirely inside one of
// the windows. Containment, not mere overlap.
func ContainedIn(windows []models.TimeWindow, start, end int) bool {
	for _, w := range windows {
		if w.Contains(start, end) {
			return true
		}
	}
	return false
}
