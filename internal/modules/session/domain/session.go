package domain

import (
	"fmt"
	"time"
)

// MaxDurationMinutes bounds period lengths so deadlines stay representable.
const MaxDurationMinutes = 1_000_000

// Session is the timer record. Methods are pure: they return the next state and
// never read the clock themselves.
type Session struct {
	ID                    string     `json:"id"`
	Owner                 Owner      `json:"owner"`
	FocusMinutes          int        `json:"focus_duration"`
	RestMinutes           int        `json:"rest_duration"`
	PeriodType            PeriodType `json:"current_period_type"`
	PeriodStart           time.Time  `json:"current_period_start"`
	PeriodEnd             time.Time  `json:"current_period_end"`
	Active                bool       `json:"is_active"`
	Paused                bool       `json:"is_paused"`
	PausedAt              time.Time  `json:"paused_at"`
	CompletedFocusPeriods int        `json:"completed_focus_periods"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	Version               int64      `json:"version"`
}

// New builds an inactive session positioned at a fresh focus period.
func New(id string, focusMinutes, restMinutes int, owner Owner, now time.Time) (Session, error) {
	if !validMinutes(focusMinutes) || !validMinutes(restMinutes) {
		return Session{}, fmt.Errorf("%w: focus=%d rest=%d", ErrInvalidDuration, focusMinutes, restMinutes)
	}
	s := Session{
		ID:           id,
		Owner:        owner,
		FocusMinutes: focusMinutes,
		RestMinutes:  restMinutes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.enterPeriod(PeriodFocus, now)
	return s, nil
}

func validMinutes(m int) bool {
	return m > 0 && m <= MaxDurationMinutes
}

// PeriodLength is the configured length of period p for this session.
func (s Session) PeriodLength(p PeriodType) time.Duration {
	if p == PeriodRest {
		return time.Duration(s.RestMinutes) * time.Minute
	}
	return time.Duration(s.FocusMinutes) * time.Minute
}

func (s *Session) enterPeriod(p PeriodType, now time.Time) {
	s.PeriodType = p
	s.PeriodStart = now
	s.PeriodEnd = now.Add(s.PeriodLength(p))
}

// Start always begins a fresh focus period, discarding any period in progress.
func (s Session) Start(now time.Time) (Session, Transition) {
	var from PeriodType
	if s.Active {
		from = s.PeriodType
	}
	s.Active = true
	s.Paused = false
	s.PausedAt = time.Time{}
	s.enterPeriod(PeriodFocus, now)
	s.UpdatedAt = now
	return s, newTransition(TransitionStarted, s, from, PeriodFocus, now)
}

// Pause freezes the countdown. Pausing again, or pausing an inactive session,
// only refreshes UpdatedAt.
func (s Session) Pause(now time.Time) Session {
	s.UpdatedAt = now
	if !s.Active || s.Paused {
		return s
	}
	s.Paused = true
	s.PausedAt = now
	return s
}

// Resume pushes the deadline forward by the time spent paused.
func (s Session) Resume(now time.Time) (Session, error) {
	if !s.Paused {
		return Session{}, ErrNotPaused
	}
	if !s.Active {
		return Session{}, ErrNotActive
	}
	if paused := now.Sub(s.pauseStarted()); paused > 0 {
		s.PeriodEnd = s.PeriodEnd.Add(paused)
	}
	s.Paused = false
	s.PausedAt = time.Time{}
	s.UpdatedAt = now
	return s, nil
}

// pauseStarted falls back to UpdatedAt for records written before PausedAt existed.
func (s Session) pauseStarted() time.Time {
	if s.PausedAt.IsZero() {
		return s.UpdatedAt
	}
	return s.PausedAt
}

// Stop deactivates the session and keeps its last period boundaries.
// Stopping an inactive session yields a zero Transition.
func (s Session) Stop(now time.Time) (Session, Transition) {
	wasActive := s.Active
	s.Active = false
	s.Paused = false
	s.PausedAt = time.Time{}
	s.UpdatedAt = now
	if !wasActive {
		return s, Transition{}
	}
	return s, newTransition(TransitionStopped, s, s.PeriodType, "", now)
}

// SwitchPeriod flips between focus and rest, counting completed focus periods
// and clearing any pause.
func (s Session) SwitchPeriod(now time.Time) (Session, Transition, error) {
	if !s.Active {
		return Session{}, Transition{}, ErrInactiveSession
	}
	from := s.PeriodType
	if from == PeriodFocus {
		s.CompletedFocusPeriods++
	}
	s.enterPeriod(from.Next(), now)
	s.Paused = false
	s.PausedAt = time.Time{}
	s.UpdatedAt = now
	return s, newTransition(TransitionSwitched, s, from, s.PeriodType, now), nil
}

// Validate checks the structural invariants of a stored record.
func (s Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if !validMinutes(s.FocusMinutes) || !validMinutes(s.RestMinutes) {
		return fmt.Errorf("%w: focus=%d rest=%d", ErrInvalidDuration, s.FocusMinutes, s.RestMinutes)
	}
	if err := s.PeriodType.Validate(); err != nil {
		return err
	}
	if !s.PeriodEnd.After(s.PeriodStart) {
		return fmt.Errorf("period end %s must be after start %s", s.PeriodEnd, s.PeriodStart)
	}
	if s.Paused && !s.Active {
		return fmt.Errorf("session %s is paused but not active", s.ID)
	}
	if s.CompletedFocusPeriods < 0 {
		return fmt.Errorf("completed focus periods must be non-negative")
	}
	return nil
}
