package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pomo/internal/modules/session/domain"
	sessionout "pomo/internal/modules/session/port/out"
	"pomo/internal/modules/session/service"
	"pomo/internal/platform/clock"
	apperrors "pomo/internal/platform/errors"
	"pomo/internal/platform/tx"
)

type fixedID string

func (f fixedID) New() string { return string(f) }

// memoryStore fails the first conflicts updates with ErrConflict.
type memoryStore struct {
	mu        sync.Mutex
	sessions  map[string]domain.Session
	conflicts int
	updates   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]domain.Session{}}
}

func (m *memoryStore) Insert(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Version = 1
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", apperrors.ErrNotFound, id)
	}
	return s, nil
}

func (m *memoryStore) Update(_ context.Context, id string, mutate sessionout.Mutator) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	current, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", apperrors.ErrNotFound, id)
	}
	next, err := mutate(current)
	if err != nil {
		return domain.Session{}, err
	}
	if m.conflicts > 0 {
		m.conflicts--
		return domain.Session{}, apperrors.ErrConflict
	}
	next.Version = current.Version + 1
	m.sessions[id] = next
	return next, nil
}

func (m *memoryStore) ListActive(context.Context) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Session
	for _, s := range m.sessions {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStore) Close() error { return nil }

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestMutationsRetryConflicts(t *testing.T) {
	t.Parallel()
	store := newMemoryStore()
	svc := service.NewSessionService(clock.NewManual(t0), fixedID("s-1"), store, tx.NewKeyedMutex())
	ctx := context.Background()
	if _, err := svc.Create(ctx, 25, 5, domain.Anonymous()); err != nil {
		t.Fatalf("create: %v", err)
	}

	store.conflicts = 2
	session, transition, err := svc.Start(ctx, "s-1")
	if err != nil {
		t.Fatalf("start should succeed after retries: %v", err)
	}
	if !session.Active || transition.Kind != domain.TransitionStarted {
		t.Fatalf("unexpected start result: %+v %+v", session, transition)
	}
	if store.updates != 3 {
		t.Fatalf("expected 3 update attempts, got %d", store.updates)
	}

	store.conflicts = 10
	if _, err := svc.Pause(ctx, "s-1"); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict after exhausting retries, got %v", err)
	}
}

func TestCreateReturnsStoredVersion(t *testing.T) {
	t.Parallel()
	store := newMemoryStore()
	svc := service.NewSessionService(clock.NewManual(t0), fixedID("s-1"), store, tx.NewKeyedMutex())
	ctx := context.Background()
	created, err := svc.Create(ctx, 25, 5, domain.Anonymous())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loaded, err := svc.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if created.Version != 1 || loaded.Version != created.Version {
		t.Fatalf("created version %d, stored version %d", created.Version, loaded.Version)
	}
}

func TestSwitchIfExpiredRechecksUnderLock(t *testing.T) {
	t.Parallel()
	store := newMemoryStore()
	clk := clock.NewManual(t0)
	svc := service.NewSessionService(clk, fixedID("s-1"), store, nil)
	ctx := context.Background()
	if _, err := svc.Create(ctx, 1, 1, domain.Anonymous()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.Start(ctx, "s-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	current, _, switched, err := svc.SwitchIfExpired(ctx, "s-1")
	if err != nil || switched {
		t.Fatalf("running session must not switch early: switched=%v err=%v", switched, err)
	}
	if current.ID != "s-1" || current.PeriodType != domain.PeriodFocus || !current.Active {
		t.Fatalf("expected the stored session back, got %+v", current)
	}
	clk.Advance(time.Minute)
	session, transition, switched, err := svc.SwitchIfExpired(ctx, "s-1")
	if err != nil || !switched {
		t.Fatalf("expected switch: switched=%v err=%v", switched, err)
	}
	if session.PeriodType != domain.PeriodRest || transition.Trigger != domain.TriggerAuto {
		t.Fatalf("unexpected switch: %+v %+v", session, transition)
	}
}

func TestStatusDoesNotWrite(t *testing.T) {
	t.Parallel()
	store := newMemoryStore()
	svc := service.NewSessionService(clock.NewManual(t0), fixedID("s-1"), store, nil)
	ctx := context.Background()
	if _, err := svc.Create(ctx, 25, 5, domain.Anonymous()); err != nil {
		t.Fatalf("create: %v", err)
	}
	status, err := svc.Status(ctx, "s-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.TimeRemainingSeconds != 1500 || status.Active {
		t.Fatalf("unexpected status %+v", status)
	}
	if store.updates != 0 {
		t.Fatalf("status must not write, saw %d updates", store.updates)
	}
}
