package api

import (
	"fmt"
	"time"

	"slotnik/internal/models"
)

type windowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type availabilityResponse struct {
	HostID  int64       `json:"host_id"`
	Date    string      `json:"date"`
	Windows []windowDTO `json:"windows"`
}

// ruleDTO is a weekly rule with clock strings instead of raw minutes.
type ruleDTO struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Active  bool   `json:"active"`
}

func ruleToDTO(r *models.RecurringRule) ruleDTO {
	return ruleDTO{
		Weekday: int(r.Weekday),
		Start:   models.FormatMinute(r.StartMinute),
		End:     models.FormatMinute(r.EndMinute),
		Active:  r.Active,
	}
}

func (d ruleDTO) toModel(hostID int64) (*models.RecurringRule, error) {
	if d.Weekday < 0 || d.Weekday > 6 {
		return nil, fmt.Errorf("weekday %d out of range", d.Weekday)
	}
	start, err := models.ParseClock(d.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := models.ParseClock(d.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	return &models.RecurringRule{
		HostID:      hostID,
		Weekday:     time.Weekday(d.Weekday),
		StartMinute: start,
		EndMinute:   end,
		Active:      d.Active,
	}, nil
}

type overrideDTO struct {
	ID     int64  `json:"id,omitempty"`
	Date   string `json:"date"`
	Kind   string `json:"kind"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	AllDay bool   `json:"all_day"`
	Reason string `json:"reason,omitempty"`
}

func overrideToDTO(o *models.Override) overrideDTO {
	dto := overrideDTO{
		ID:     o.ID,
		Date:   o.Date.Format(dateLayout),
		Kind:   string(o.Kind),
		AllDay: o.AllDay,
		Reason: o.Reason,
	}
	if !o.AllDay {
		dto.Start = models.FormatMinute(o.StartMinute)
		dto.End = models.FormatMinute(o.EndMinute)
	}
	return dto
}

func (d overrideDTO) toModel(hostID int64) (*models.Override, error) {
	date, err := time.Parse(dateLayout, d.Date)
	if err != nil {
		return nil, fmt.Errorf("date: expected YYYY-MM-DD")
	}
	kind := models.OverrideKind(d.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("kind %q is not available or blocked", d.Kind)
	}

	o := &models.Override{
		HostID: hostID,
		Date:   date,
		Kind:   kind,
		AllDay: d.AllDay,
		Reason: d.Reason,
	}
	if !d.AllDay {
		if o.StartMinute, err = models.ParseClock(d.Start); err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		if o.EndMinute, err = models.ParseClock(d.End); err != nil {
			return nil, fmt.Errorf("end: %w", err)
		}
	}
	return o, nil
}

type createReservationRequest struct {
	HostID         int64  `json:"host_id"`
	ClientID       int64  `json:"client_id"`
	Start          string `json:"start"`
	End            string `json:"end"`
	HourlyRate     int64  `json:"hourly_rate"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type transitionRequest struct {
	Action  string `json:"action"`
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason,omitempty"`
}

type reservationDTO struct {
	ID                 int64  `json:"id"`
	HostID             int64  `json:"host_id"`
	ClientID           int64  `json:"client_id"`
	Date               string `json:"date"`
	Start              string `json:"start"`
	End                string `json:"end"`
	Status             string `json:"status"`
	Amount             int64  `json:"amount"`
	PlatformFee        int64  `json:"platform_fee"`
	Payout             int64  `json:"payout"`
	TransferError      string `json:"transfer_error,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	Version            int64  `json:"version"`
}

func reservationToDTO(r *models.Reservation) reservationDTO {
	return reservationDTO{
		ID:                 r.ID,
		HostID:             r.HostID,
		ClientID:           r.ClientID,
		Date:               r.Date.Format(dateLayout),
		Start:              models.FormatMinute(r.StartMinute),
		End:                models.FormatMinute(r.EndMinute),
		Status:             string(r.Status),
		Amount:             r.Amount,
		PlatformFee:        r.PlatformFee,
		Payout:             r.Payout,
		TransferError:      r.TransferError,
		CancellationReason: r.CancellationReason,
		Version:            r.Version,
	}
}
