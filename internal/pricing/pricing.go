package pricing

// Quote is the money breakdown of one reservation in minor units.
// Gross == PlatformFee + Payout holds for every quote; fee and payout
// are always derived from the same formula, never stored independently.
type Quote struct {
	Gross       int64 `json:"gross"`
	PlatformFee int64 `json:"platform_fee"`
	Payout      int64 `json:"payout"`
}

// Calculator derives reservation pricing from an hourly rate. All
// arithmetic is integer and truncating.
type Calculator struct {
	feeRatePercent int64
}

func NewCalculator(feeRatePercent int) *Calculator {
	if feeRatePercent < 0 || feeRatePercent > 100 {
		feeRatePercent = 0
	}
	return &Calculator{feeRatePercent: int64(feeRatePercent)}
}

// Compute maps (hourly rate in minor units, duration in minutes) to a
// quote. gross = floor(rate*minutes/60), fee = floor(gross*rate%/100).
func (c *Calculator) Compute(hourlyRate int64, durationMinutes int) Quote {
	if hourlyRate < 0 || durationMinutes <= 0 {
		return Quote{}
	}
	gross := hourlyRate * int64(durationMinutes) / 60
	fee := gross * c.feeRatePercent / 100
	return Quote{
		Gross:       gross,
		PlatformFee: fee,
		Payout:      gross - fee,
	}
}
