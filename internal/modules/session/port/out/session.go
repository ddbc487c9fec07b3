package out

import (
	"context"

	"pomo/internal/modules/session/domain"
)

// Mutator computes the next state of a stored session.
type Mutator func(current domain.Session) (domain.Session, error)

// SessionStore persists one record per session id. Update is an atomic
// read-modify-write: the store loads the record, applies mutate, bumps Version
// and writes the result, or fails with apperrors.ErrConflict when another
// writer got there first. Missing records yield apperrors.ErrNotFound.
type SessionStore interface {
	Insert(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	Update(ctx context.Context, id string, mutate Mutator) (domain.Session, error)
	ListActive(ctx context.Context) ([]domain.Session, error)
	Close() error
}

// Notifier reacts to period transitions.
type Notifier interface {
	Notify(ctx context.Context, transition domain.Transition) error
}
