package domain

import "time"

type TransitionKind string

const (
	TransitionStarted  TransitionKind = "started"
	TransitionSwitched TransitionKind = "switched"
	TransitionStopped  TransitionKind = "stopped"
)

type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

// Transition is emitted when a session starts, changes period or stops.
// From is empty for a start on an inactive session; To is empty for a stop.
type Transition struct {
	Kind                  TransitionKind
	SessionID             string
	Owner                 Owner
	From                  PeriodType
	To                    PeriodType
	CompletedFocusPeriods int
	Trigger               Trigger
	At                    time.Time
}

func (t Transition) IsZero() bool {
	return t.Kind == ""
}

func newTransition(kind TransitionKind, s Session, from, to PeriodType, at time.Time) Transition {
	return Transition{
		Kind:                  kind,
		SessionID:             s.ID,
		Owner:                 s.Owner,
		From:                  from,
		To:                    to,
		CompletedFocusPeriods: s.CompletedFocusPeriods,
		Trigger:               TriggerManual,
		At:                    at,
	}
}
