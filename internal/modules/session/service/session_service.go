package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pomo/internal/modules/session/domain"
	sessionout "pomo/internal/modules/session/port/out"
	"pomo/internal/platform/clock"
	apperrors "pomo/internal/platform/errors"
	"pomo/internal/platform/id"
	"pomo/internal/platform/tx"
)

const defaultConflictRetries = 3

type SessionService struct {
	clock   clock.Clock
	idGen   id.Generator
	store   sessionout.SessionStore
	locks   tx.Manager
	retries int
}

func NewSessionService(clock clock.Clock, idGen id.Generator, store sessionout.SessionStore, locks tx.Manager) *SessionService {
	if locks == nil {
		locks = tx.NoopManager{}
	}
	return &SessionService{clock: clock, idGen: idGen, store: store, locks: locks, retries: defaultConflictRetries}
}

func (s *SessionService) Now() time.Time {
	return s.clock.Now()
}

func (s *SessionService) Create(ctx context.Context, focusMinutes, restMinutes int, owner domain.Owner) (domain.Session, error) {
	session, err := domain.New(s.idGen.New(), focusMinutes, restMinutes, owner, s.clock.Now())
	if err != nil {
		return domain.Session{}, err
	}
	session.Version = 1
	if err := s.store.Insert(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	if err := requireID(sessionID); err != nil {
		return domain.Session{}, err
	}
	return s.store.Get(ctx, sessionID)
}

func (s *SessionService) Status(ctx context.Context, sessionID string) (domain.Status, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Status{}, err
	}
	return session.Status(s.clock.Now()), nil
}

func (s *SessionService) Start(ctx context.Context, sessionID string) (domain.Session, domain.Transition, error) {
	var transition domain.Transition
	session, err := s.mutate(ctx, sessionID, func(current domain.Session, now time.Time) (domain.Session, error) {
		next, tr := current.Start(now)
		transition = tr
		return next, nil
	})
	return session, transition, err
}

func (s *SessionService) Pause(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.mutate(ctx, sessionID, func(current domain.Session, now time.Time) (domain.Session, error) {
		return current.Pause(now), nil
	})
}

func (s *SessionService) Resume(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.mutate(ctx, sessionID, func(current domain.Session, now time.Time) (domain.Session, error) {
		return current.Resume(now)
	})
}

func (s *SessionService) Stop(ctx context.Context, sessionID string) (domain.Session, domain.Transition, error) {
	var transition domain.Transition
	session, err := s.mutate(ctx, sessionID, func(current domain.Session, now time.Time) (domain.Session, error) {
		next, tr := current.Stop(now)
		transition = tr
		return next, nil
	})
	return session, transition, err
}

func (s *SessionService) SwitchPeriod(ctx context.Context, sessionID string, trigger domain.Trigger) (domain.Session, domain.Transition, error) {
	var transition domain.Transition
	session, err := s.mutate(ctx, sessionID, func(current domain.Session, now time.Time) (domain.Session, error) {
		next, tr, err := current.SwitchPeriod(now)
		if err != nil {
			return domain.Session{}, err
		}
		tr.Trigger = trigger
		transition = tr
		return next, nil
	})
	return session, transition, err
}

var errNotExpired = errors.New("session period has not ended")

// SwitchIfExpired advances the session only if it is still running and out of
// time once the write lock is held. When nothing changed, switched is false and
// session is the stored record.
func (s *SessionService) SwitchIfExpired(ctx context.Context, sessionID string) (session domain.Session, transition domain.Transition, switched bool, err error) {
	session, err = s.mutate(ctx, sessionID, func(current domain.Session, now time.Time) (domain.Session, error) {
		if !current.Expired(now) {
			return domain.Session{}, errNotExpired
		}
		next, tr, err := current.SwitchPeriod(now)
		if err != nil {
			return domain.Session{}, err
		}
		tr.Trigger = domain.TriggerAuto
		transition = tr
		return next, nil
	})
	if errors.Is(err, errNotExpired) {
		current, err := s.store.Get(ctx, sessionID)
		if err != nil {
			return domain.Session{}, domain.Transition{}, false, err
		}
		return current, domain.Transition{}, false, nil
	}
	if err != nil {
		return domain.Session{}, domain.Transition{}, false, err
	}
	return session, transition, true, nil
}

func (s *SessionService) ListActive(ctx context.Context) ([]domain.Session, error) {
	return s.store.ListActive(ctx)
}

// FindActive returns the most recently updated active session matching filter.
func (s *SessionService) FindActive(ctx context.Context, filter domain.OwnerFilter) (domain.Session, error) {
	sessions, err := s.store.ListActive(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	matches := make([]domain.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.Active && filter.Matches(session.Owner) {
			matches = append(matches, session)
		}
	}
	if len(matches) == 0 {
		return domain.Session{}, apperrors.ErrNoActiveSession
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches[0], nil
}

// mutate serializes writers per session and retries optimistic-lock conflicts.
func (s *SessionService) mutate(ctx context.Context, sessionID string, apply func(domain.Session, time.Time) (domain.Session, error)) (domain.Session, error) {
	if err := requireID(sessionID); err != nil {
		return domain.Session{}, err
	}
	var out domain.Session
	err := s.locks.Within(ctx, sessionID, func(ctx context.Context) error {
		for attempt := 0; ; attempt++ {
			now := s.clock.Now()
			updated, err := s.store.Update(ctx, sessionID, func(current domain.Session) (domain.Session, error) {
				return apply(current, now)
			})
			if errors.Is(err, apperrors.ErrConflict) && attempt < s.retries {
				continue
			}
			if err != nil {
				return err
			}
			out = updated
			return nil
		}
	})
	if err != nil {
		return domain.Session{}, err
	}
	return out, nil
}

func requireID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	return nil
}
