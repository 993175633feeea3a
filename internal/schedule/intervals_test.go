package schedule

import (
	"testing"

	"slotnik/internal/models"

	"github.com/stretchr/testify/assert"
)

func win(start, end int) models.TimeWindow {
	return models.TimeWindow{StartMinute: start, EndMinute: end}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		input    []models.TimeWindow
		expected []models.TimeWindow
	}{
		{
			name:     "empty input",
			input:    nil,
			expected: nil,
		},
		{
			name:     "single window",
			input:    []models.TimeWindow{win(540, 1020)},
			expected: []models.TimeWindow{win(540, 1020)},
		},
		{
			name:     "disjoint windows stay separate",
			input:    []models.TimeWindow{win(540, 720), win(780, 1020)},
			expected: []models.TimeWindow{win(540, 720), win(780, 1020)},
		},
		{
			name:     "overlapping windows merge",
			input:    []models.TimeWindow{win(540, 780), win(720, 1020)},
			expected: []models.TimeWindow{win(540, 1020)},
		},
		{
			name:     "touching windows merge",
			input:    []models.TimeWindow{win(540, 720), win(720, 1020)},
			expected: []models.TimeWindow{win(540, 1020)},
		},
		{
			name:     "unsorted input gets sorted",
			input:    []models.TimeWindow{win(780, 1020), win(540, 720)},
			expected: []models.TimeWindow{win(540, 720), win(780, 1020)},
		},
		{
			name:     "contained window is absorbed",
			input:    []models.TimeWindow{win(540, 1020), win(600, 660)},
			expected: []models.TimeWindow{win(540, 1020)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Merge(tt.input))
		})
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	input := []models.TimeWindow{win(780, 1020), win(540, 720)}
	_ = Merge(input)
	assert.Equal(t, []models.TimeWindow{win(780, 1020), win(540, 720)}, input)
}

func TestMergeIdempotent(t *testing.T) {
	once := Merge([]models.TimeWindow{win(540, 780), win(720, 1020), win(1080, 1140)})
	twice := Merge(once)
	assert.Equal(t, once, twice)
}

func TestSubtract(t *testing.T) {
	base := []models.TimeWindow{win(540, 1020)} // 09:00-17:00

	tests := []struct {
		name       string
		windows    []models.TimeWindow
		blockStart int
		blockEnd   int
		expected   []models.TimeWindow
	}{
		{
			name:       "no overlap leaves window untouched",
			windows:    base,
			blockStart: 420, blockEnd: 480,
			expected: []models.TimeWindow{win(540, 1020)},
		},
		{
			name:       "block covers window entirely",
			windows:    base,
			blockStart: 480, blockEnd: 1080,
			expected: nil,
		},
		{
			name:       "block splits the middle",
			windows:    base,
			blockStart: 720, blockEnd: 780,
			expected: []models.TimeWindow{win(540, 720), win(780, 1020)},
		},
		{
			name:       "block trims the head",
			windows:    base,
			blockStart: 480, blockEnd: 600,
			expected: []models.TimeWindow{win(600, 1020)},
		},
		{
			name:       "block trims the tail",
			windows:    base,
			blockStart: 960, blockEnd: 1080,
			expected: []models.TimeWindow{win(540, 960)},
		},
		{
			name:       "touching block removes nothing",
			windows:    base,
			blockStart: 1020, blockEnd: 1080,
			expected: []models.TimeWindow{win(540, 1020)},
		},
		{
			name:       "empty block is a no-op",
			windows:    base,
			blockStart: 600, blockEnd: 600,
			expected: []models.TimeWindow{win(540, 1020)},
		},
		{
			name:       "block spans several windows",
			windows:    []models.TimeWindow{win(540, 720), win(780, 1020)},
			blockStart: 660, blockEnd: 840,
			expected: []models.TimeWindow{win(540, 660), win(840, 1020)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Subtract(tt.windows, tt.blockStart, tt.blockEnd))
		})
	}
}

func TestContainedIn(t *testing.T) {
	windows := []models.TimeWindow{win(540, 720), win(780, 1020)}

	assert.True(t, ContainedIn(windows, 540, 720))
	assert.True(t, ContainedIn(windows, 600, 660))
	assert.True(t, ContainedIn(windows, 780, 1020))

	// Spans the gap between the two windows.
	assert.False(t, ContainedIn(windows, 660, 840))
	// Overlap is not containment.
	assert.False(t, ContainedIn(windows, 500, 600))
	assert.False(t, ContainedIn(windows, 1000, 1080))
	assert.False(t, ContainedIn(nil, 540, 720))
}
