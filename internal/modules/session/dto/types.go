package dto

import "time"

// CreateInput leaves durations nil to take the configured defaults.
type CreateInput struct {
	FocusMinutes *int
	RestMinutes  *int
	Owner        *string
}

type SessionInput struct {
	SessionID string
}

type OwnerScope string

const (
	ScopeAnyOwner  OwnerScope = "any"
	ScopeAnonymous OwnerScope = "anonymous"
	ScopeOwner     OwnerScope = "owner"
)

type ActiveQuery struct {
	Scope OwnerScope
	Owner string
}

type SessionOutput struct {
	ID                    string    `json:"id"`
	Owner                 *string   `json:"owner"`
	FocusMinutes          int       `json:"focus_duration"`
	RestMinutes           int       `json:"rest_duration"`
	PeriodType            string    `json:"current_period_type"`
	PeriodStart           time.Time `json:"current_period_start"`
	PeriodEnd             time.Time `json:"current_period_end"`
	Active                bool      `json:"is_active"`
	Paused                bool      `json:"is_paused"`
	PausedAt              time.Time `json:"paused_at"`
	CompletedFocusPeriods int       `json:"completed_focus_periods"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	Version               int64     `json:"version"`
}

// SwitchOutput carries the current session; Switched is false when the period
// had not ended or another caller already advanced it.
type SwitchOutput struct {
	Session  SessionOutput `json:"session"`
	Switched bool          `json:"switched"`
}

type StatusOutput struct {
	SessionID             string    `json:"id"`
	Owner                 *string   `json:"owner"`
	PeriodType            string    `json:"current_period_type"`
	TimeRemainingSeconds  int64     `json:"time_remaining"`
	Active                bool      `json:"is_active"`
	Paused                bool      `json:"is_paused"`
	CompletedFocusPeriods int       `json:"completed_focus_periods"`
	FocusMinutes          int       `json:"focus_duration"`
	RestMinutes           int       `json:"rest_duration"`
	PeriodEnd             time.Time `json:"current_period_end"`
}

// Expired mirrors the condition under which a client should switch periods.
func (s StatusOutput) Expired() bool {
	return s.Active && !s.Paused && s.TimeRemainingSeconds == 0
}
