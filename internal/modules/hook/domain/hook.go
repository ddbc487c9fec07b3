package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

type EventKind string

const (
	EventStarted  EventKind = "started"
	EventSwitched EventKind = "switched"
	EventStopped  EventKind = "stopped"
)

var (
	ErrChecksumMismatch = errors.New("hook checksum mismatch")
	ErrHookTimeout      = errors.New("hook timeout")
)

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

func (k EventKind) Validate() error {
	switch k {
	case EventStarted, EventSwitched, EventStopped:
		return nil
	default:
		return fmt.Errorf("unknown event kind: %s", k)
	}
}

// Manifest registers a hook binary. An empty Events list subscribes to every kind.
type Manifest struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Binary  string      `json:"binary"`
	SHA256  string      `json:"sha256"`
	Enabled bool        `json:"enabled"`
	Events  []EventKind `json:"events,omitempty"`
}

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("hook name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("hook version is required")
	}
	if m.Binary == "" {
		return fmt.Errorf("hook binary path is required")
	}
	if !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("hook sha256 must be lowercase 64-char hex")
	}
	seen := map[EventKind]struct{}{}
	for _, kind := range m.Events {
		if err := kind.Validate(); err != nil {
			return err
		}
		if _, ok := seen[kind]; ok {
			return fmt.Errorf("duplicate event: %s", kind)
		}
		seen[kind] = struct{}{}
	}
	return nil
}

func (m Manifest) Subscribes(kind EventKind) bool {
	if len(m.Events) == 0 {
		return true
	}
	for _, k := range m.Events {
		if k == kind {
			return true
		}
	}
	return false
}

type Metadata struct {
	Name    string
	Version string
	Events  []EventKind
}

// Event is a session transition as hooks see it.
type Event struct {
	Kind                  EventKind
	SessionID             string
	Owner                 *string
	From                  string
	To                    string
	CompletedFocusPeriods int
	Trigger               string
	At                    time.Time
}

func (e Event) Validate() error {
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if e.SessionID == "" {
		return fmt.Errorf("event session id is required")
	}
	return nil
}
