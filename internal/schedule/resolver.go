package schedule

import "slotnik/internal/models"

// DayPolicy carries the product constants the resolver needs. AllDay is
// the canonical window substituted for all-day available overrides; it
// is a policy value, never derived from stored data.
type DayPolicy struct {
	AllDay models.TimeWindow
}

func DefaultDayPolicy() DayPolicy {
	return DayPolicy{AllDay: models.TimeWindow{
		StartMinute: models.DefaultDayStartMinute,
		EndMinute:   models.DefaultDayEndMinute,
	}}
}

// ResolveDay computes the free windows of one calendar date from the
// host's recurring rule for that weekday and the date's overrides.
// Pure: same inputs, same output.
//
// Precedence is fixed: an all-day block empties the day outright;
// otherwise additions are applied before blocks, so blocks always win
// over same-day additions.
func ResolveDay(rule *models.RecurringRule, overrides []*models.Override, policy DayPolicy) []models.TimeWindow {
	var windows []models.TimeWindow
	if rule != nil && rule.Active {
		windows = append(windows, rule.Window())
	}

	var additions []*models.Override
	var blocks []*models.Override
	for _, o := range overrides {
		switch o.Kind {
		case models.OverrideAvailable:
			additions = append(additions, o)
		case models.OverrideBlocked:
			if o.AllDay {
				return nil
			}
			blocks = append(blocks, o)
		}
	}

	for _, a := range additions {
		if a.AllDay {
			windows = append(windows, policy.AllDay)
			continue
		}
		windows = append(windows, a.Window())
	}

	for _, b := range blocks {
		windows = Subtract(windows, b.StartMinute, b.EndMinute)
	}

	return Merge(windows)
}
