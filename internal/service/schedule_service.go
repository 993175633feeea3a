package service

import (
	"context"
	"time"

	"slotnik/internal/domain"
	"slotnik/internal/models"
	"slotnik/internal/schedule"

	"github.com/rs/zerolog"
)

// ScheduleService manages a host's weekly template and date overrides
// and resolves free windows for a date.
type ScheduleService struct {
	repo   domain.Repository
	policy schedule.DayPolicy
	logger *zerolog.Logger
}

func NewScheduleService(repo domain.Repository, policy schedule.DayPolicy, logger *zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		repo:   repo,
		policy: policy,
		logger: logger,
	}
}

// SetWeeklyRule upserts the rule for (host, weekday).
func (s *ScheduleService) SetWeeklyRule(ctx context.Context, rule *models.RecurringRule) error {
	return s.repo.UpsertRecurringRule(ctx, rule)
}

// ReplaceWeeklyTemplate swaps the host's whole weekly template.
func (s *ScheduleService) ReplaceWeeklyTemplate(ctx context.Context, hostID int64, rules []*models.RecurringRule) error {
	return s.repo.ReplaceWeeklyTemplate(ctx, hostID, rules)
}

func (s *ScheduleService) ListRules(ctx context.Context, hostID int64) ([]*models.RecurringRule, error) {
	return s.repo.ListRules(ctx, hostID)
}

func (s *ScheduleService) DeleteRule(ctx context.Context, hostID int64, weekday time.Weekday) error {
	return s.repo.DeleteRecurringRule(ctx, hostID, weekday)
}

// AddOverride stores a one-off schedule change for a date.
func (s *ScheduleService) AddOverride(ctx context.Context, o *models.Override) error {
	return s.repo.CreateOverride(ctx, o)
}

func (s *ScheduleService) DeleteOverride(ctx context.Context, hostID, id int64) error {
	return s.repo.DeleteOverride(ctx, hostID, id)
}

func (s *ScheduleService) GetOverrides(ctx context.Context, hostID int64, date time.Time) ([]*models.Override, error) {
	return s.repo.GetOverrides(ctx, hostID, date)
}

// ResolveAvailability returns the free windows of a host for one date:
// the weekday rule plus available overrides, minus blocked ones. Active
// reservations are not subtracted here; that is the conflict check's job.
func (s *ScheduleService) ResolveAvailability(ctx context.Context, hostID int64, date time.Time) ([]models.TimeWindow, error) {
	rule, err := s.repo.GetActiveRule(ctx, hostID, date.Weekday())
	if err != nil {
		return nil, err
	}
	overrides, err := s.repo.GetOverrides(ctx, hostID, date)
	if err != nil {
		return nil, err
	}
	return schedule.ResolveDay(rule, overrides, s.policy), nil
}
