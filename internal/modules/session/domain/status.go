package domain

import "time"

// Status is a point-in-time view of a session.
type Status struct {
	SessionID             string
	Owner                 Owner
	PeriodType            PeriodType
	TimeRemainingSeconds  int64
	Active                bool
	Paused                bool
	CompletedFocusPeriods int
	FocusMinutes          int
	RestMinutes           int
	PeriodEnd             time.Time
}

// Status projects the countdown at now. A paused session is evaluated at the
// instant it was paused. Inactive sessions still report their stored boundaries.
func (s Session) Status(now time.Time) Status {
	at := now
	if s.Paused {
		at = s.pauseStarted()
	}
	remaining := int64(s.PeriodEnd.Sub(at) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		SessionID:             s.ID,
		Owner:                 s.Owner,
		PeriodType:            s.PeriodType,
		TimeRemainingSeconds:  remaining,
		Active:                s.Active,
		Paused:                s.Paused,
		CompletedFocusPeriods: s.CompletedFocusPeriods,
		FocusMinutes:          s.FocusMinutes,
		RestMinutes:           s.RestMinutes,
		PeriodEnd:             s.PeriodEnd,
	}
}

// Expired reports whether a running session has reached the end of its period.
func (s Session) Expired(now time.Time) bool {
	return s.Active && !s.Paused && s.Status(now).TimeRemainingSeconds == 0
}
