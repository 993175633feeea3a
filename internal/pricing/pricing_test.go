package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeQuote(t *testing.T) {
	calc := NewCalculator(15)

	tests := []struct {
		name       string
		hourlyRate int64
		minutes    int
		expected   Quote
	}{
		{
			name:       "90 minutes at 5000 per hour",
			hourlyRate: 5000,
			minutes:    90,
			expected:   Quote{Gross: 7500, PlatformFee: 1125, Payout: 6375},
		},
		{
			name:       "exactly one hour",
			hourlyRate: 5000,
			minutes:    60,
			expected:   Quote{Gross: 5000, PlatformFee: 750, Payout: 4250},
		},
		{
			name:       "truncating gross",
			hourlyRate: 100,
			minutes:    45, // 100*45/60 = 75
			expected:   Quote{Gross: 75, PlatformFee: 11, Payout: 64},
		},
		{
			name:       "zero rate",
			hourlyRate: 0,
			minutes:    60,
			expected:   Quote{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Compute(tt.hourlyRate, tt.minutes)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got.Gross, got.PlatformFee+got.Payout)
		})
	}
}

func TestComputeInvalidInput(t *testing.T) {
	calc := NewCalculator(15)
	assert.Equal(t, Quote{}, calc.Compute(-1, 60))
	assert.Equal(t, Quote{}, calc.Compute(5000, 0))
	assert.Equal(t, Quote{}, calc.Compute(5000, -30))
}

func TestZeroFeeRate(t *testing.T) {
	calc := NewCalculator(0)
	q := calc.Compute(5000, 60)
	assert.Equal(t, Quote{Gross: 5000, PlatformFee: 0, Payout: 5000}, q)
}

func TestOutOfRangeFeeRateClampedToZero(t *testing.T) {
	for _, pct := range []int{-5, 101} {
		calc := NewCalculator(pct)
		q := calc.Compute(5000, 60)
		assert.Equal(t, int64(0), q.PlatformFee)
		assert.Equal(t, q.Gross, q.Payout)
	}
}
