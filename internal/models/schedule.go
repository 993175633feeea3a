package models

import "time"

// RecurringRule is the weekly default availability of a host for one
// weekday. At most one active rule exists per (host, weekday); an upsert
// on that pair replaces the previous rule.
type RecurringRule struct {
	ID          int64        `json:"id"`
	HostID      int64        `json:"host_id"`
	Weekday     time.Weekday `json:"weekday"`
	StartMinute int          `json:"start_minute"`
	EndMinute   int          `json:"end_minute"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (r *RecurringRule) Window() TimeWindow {
	return TimeWindow{StartMinute: r.StartMinute, EndMinute: r.EndMinute}
}

type OverrideKind string

const (
	OverrideAvailable OverrideKind = "available"
	OverrideBlocked   OverrideKind = "blocked"
)

func (k OverrideKind) Valid() bool {
	return k == OverrideAvailable || k == OverrideBlocked
}

// Override is a one-off, date-specific change to a host's schedule.
// Blocked overrides remove time, available overrides add time. All-day
// overrides carry no start/end; partial ones must carry both.
type Override struct {
	ID          int64        `json:"id"`
	HostID      int64        `json:"host_id"`
	Date        time.Time    `json:"date"`
	Kind        OverrideKind `json:"kind"`
	StartMinute int          `json:"start_minute,omitempty"`
	EndMinute   int          `json:"end_minute,omitempty"`
	AllDay      bool         `json:"all_day"`
	Reason      string       `json:"reason,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (o *Override) Window() TimeWindow {
	return TimeWindow{StartMinute: o.StartMinute, EndMinute: o.EndMinute}
}
