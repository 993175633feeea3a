package schedule

import (
	"testing"
	"time"

	"slotnik/internal/models"

	"github.com/stretchr/testify/assert"
)

func mondayRule(start, end int) *models.RecurringRule {
	return &models.RecurringRule{
		ID:          1,
		HostID:      10,
		Weekday:     time.Monday,
		StartMinute: start,
		EndMinute:   end,
		Active:      true,
	}
}

func blocked(start, end int) *models.Override {
	return &models.Override{HostID: 10, Kind: models.OverrideBlocked, StartMinute: start, EndMinute: end}
}

func available(start, end int) *models.Override {
	return &models.Override{HostID: 10, Kind: models.OverrideAvailable, StartMinute: start, EndMinute: end}
}

func TestResolveDayRuleOnly(t *testing.T) {
	got := ResolveDay(mondayRule(540, 1020), nil, DefaultDayPolicy())
	assert.Equal(t, []models.TimeWindow{win(540, 1020)}, got)
}

func TestResolveDayNoRuleNoOverrides(t *testing.T) {
	assert.Empty(t, ResolveDay(nil, nil, DefaultDayPolicy()))
}

func TestResolveDayInactiveRuleIgnored(t *testing.T) {
	rule := mondayRule(540, 1020)
	rule.Active = false
	assert.Empty(t, ResolveDay(rule, nil, DefaultDayPolicy()))
}

func TestResolveDayBlockSplitsRule(t *testing.T) {
	// 09:00-17:00 rule with a 12:00-13:00 block.
	got := ResolveDay(mondayRule(540, 1020), []*models.Override{blocked(720, 780)}, DefaultDayPolicy())
	assert.Equal(t, []models.TimeWindow{win(540, 720), win(780, 1020)}, got)
}

func TestResolveDayAllDayBlockEmptiesDay(t *testing.T) {
	overrides := []*models.Override{
		available(480, 600),
		{HostID: 10, Kind: models.OverrideBlocked, AllDay: true},
	}
	assert.Nil(t, ResolveDay(mondayRule(540, 1020), overrides, DefaultDayPolicy()))
}

func TestResolveDayAllDayAvailableUsesPolicyWindow(t *testing.T) {
	overrides := []*models.Override{
		{HostID: 10, Kind: models.OverrideAvailable, AllDay: true},
	}
	got := ResolveDay(nil, overrides, DefaultDayPolicy())
	assert.Equal(t, []models.TimeWindow{win(models.DefaultDayStartMinute, models.DefaultDayEndMinute)}, got)
}

func TestResolveDayAdditionMergesWithRule(t *testing.T) {
	// Rule 09:00-12:00 plus addition 11:00-14:00 becomes one window.
	got := ResolveDay(mondayRule(540, 720), []*models.Override{available(660, 840)}, DefaultDayPolicy())
	assert.Equal(t, []models.TimeWindow{win(540, 840)}, got)
}

func TestResolveDayBlockWinsOverAddition(t *testing.T) {
	// The same minutes are both added and blocked: the block wins.
	overrides := []*models.Override{
		available(600, 720),
		blocked(600, 720),
	}
	got := ResolveDay(mondayRule(540, 1020), overrides, DefaultDayPolicy())
	assert.Equal(t, []models.TimeWindow{win(540, 600), win(720, 1020)}, got)
}

func TestResolveDayBlockWithoutRule(t *testing.T) {
	got := ResolveDay(nil, []*models.Override{blocked(600, 720)}, DefaultDayPolicy())
	assert.Empty(t, got)
}

func TestResolveDayMultipleBlocks(t *testing.T) {
	overrides := []*models.Override{
		blocked(600, 660),
		blocked(840, 900),
	}
	got := ResolveDay(mondayRule(540, 1020), overrides, DefaultDayPolicy())
	assert.Equal(t, []models.TimeWindow{win(540, 600), win(660, 840), win(900, 1020)}, got)
}
