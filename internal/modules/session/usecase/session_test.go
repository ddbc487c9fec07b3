package usecase_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	sessionout "pomo/internal/modules/session/adapter/out"
	"pomo/internal/modules/session/domain"
	sessiondto "pomo/internal/modules/session/dto"
	sessionin "pomo/internal/modules/session/port/in"
	"pomo/internal/modules/session/service"
	"pomo/internal/modules/session/usecase"
	"pomo/internal/platform/clock"
	apperrors "pomo/internal/platform/errors"
	"pomo/internal/platform/metrics"
	"pomo/internal/platform/tx"

	"github.com/rs/zerolog"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type sequentialID struct {
	mu   sync.Mutex
	next int
}

func (s *sequentialID) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return "sess-" + strconv.Itoa(s.next)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Transition
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, t domain.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, t)
	return r.err
}

func (r *recordingNotifier) kinds() []domain.TransitionKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TransitionKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type harness struct {
	clk      *clock.Manual
	svc      *service.SessionService
	uc       sessionin.Usecase
	notifier *recordingNotifier
	metrics  *metrics.Recorder
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store, err := sessionout.NewSQLiteSessionStore(context.Background(), filepath.Join(t.TempDir(), "pomo.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	clk := clock.NewManual(t0)
	svc := service.NewSessionService(clk, &sequentialID{}, store, tx.NewKeyedMutex())
	notifier := &recordingNotifier{}
	rec := metrics.NewRecorder()
	uc := usecase.NewInteractor(svc, usecase.Options{
		Defaults: usecase.Defaults{FocusMinutes: 25, RestMinutes: 5},
		Notifier: notifier,
		Metrics:  rec,
		Logger:   zerolog.Nop(),
	})
	return harness{clk: clk, svc: svc, uc: uc, notifier: notifier, metrics: rec}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestCreateUsesDefaultsAndRejectsExplicitZero(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.uc.Create(ctx, sessiondto.CreateInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.FocusMinutes != 25 || created.RestMinutes != 5 || created.Active || created.PeriodType != "focus" {
		t.Fatalf("unexpected created session: %+v", created)
	}
	if created.Owner != nil {
		t.Fatalf("expected anonymous owner, got %q", *created.Owner)
	}

	if _, err := h.uc.Create(ctx, sessiondto.CreateInput{FocusMinutes: intPtr(0)}); !errors.Is(err, domain.ErrInvalidDuration) {
		t.Fatalf("expected invalid duration, got %v", err)
	}
	custom, err := h.uc.Create(ctx, sessiondto.CreateInput{FocusMinutes: intPtr(50), RestMinutes: intPtr(10), Owner: strPtr("alice")})
	if err != nil {
		t.Fatalf("create custom: %v", err)
	}
	if custom.FocusMinutes != 50 || custom.Owner == nil || *custom.Owner != "alice" {
		t.Fatalf("unexpected custom session: %+v", custom)
	}
}

func TestFullCycleThroughUsecase(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.uc.Create(ctx, sessiondto.CreateInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	in := sessiondto.SessionInput{SessionID: created.ID}

	if _, err := h.uc.SwitchPeriod(ctx, in); !errors.Is(err, domain.ErrInactiveSession) {
		t.Fatalf("expected inactive session error, got %v", err)
	}
	started, err := h.uc.Start(ctx, in)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !started.Active || !started.PeriodEnd.Equal(t0.Add(25*time.Minute)) {
		t.Fatalf("unexpected started session: %+v", started)
	}

	h.clk.Advance(100 * time.Second)
	if _, err := h.uc.Resume(ctx, in); !errors.Is(err, domain.ErrNotPaused) {
		t.Fatalf("expected not paused, got %v", err)
	}
	if _, err := h.uc.Pause(ctx, in); err != nil {
		t.Fatalf("pause: %v", err)
	}
	h.clk.Advance(300 * time.Second)
	status, err := h.uc.Status(ctx, in)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.TimeRemainingSeconds != 1400 || !status.Paused {
		t.Fatalf("paused countdown must be frozen: %+v", status)
	}
	resumed, err := h.uc.Resume(ctx, in)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !resumed.PeriodEnd.Equal(t0.Add(25*time.Minute + 300*time.Second)) {
		t.Fatalf("deadline not shifted: %s", resumed.PeriodEnd)
	}

	switched, err := h.uc.SwitchPeriod(ctx, in)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if switched.PeriodType != "rest" || switched.CompletedFocusPeriods != 1 {
		t.Fatalf("unexpected switch result: %+v", switched)
	}
	stopped, err := h.uc.Stop(ctx, in)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped.Active || stopped.Paused {
		t.Fatalf("unexpected stopped session: %+v", stopped)
	}
	if _, err := h.uc.Stop(ctx, in); err != nil {
		t.Fatalf("second stop must succeed: %v", err)
	}

	got := h.notifier.kinds()
	want := []domain.TransitionKind{domain.TransitionStarted, domain.TransitionSwitched, domain.TransitionStopped}
	if len(got) != len(want) {
		t.Fatalf("unexpected transitions %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected transitions %v", got)
		}
	}
	if v := operationCount(t, h.metrics, "resume", "error"); v != 1 {
		t.Fatalf("expected one failed resume, got %v", v)
	}
}

func operationCount(t *testing.T, rec *metrics.Recorder, op, result string) float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "pomo_session_operations_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range m.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["op"] == op && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestUnknownAndEmptySessionIDs(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.uc.Start(ctx, sessiondto.SessionInput{SessionID: "nope"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.uc.Status(ctx, sessiondto.SessionInput{SessionID: "nope"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.uc.Pause(ctx, sessiondto.SessionInput{}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestGetActiveFiltersByOwner(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.uc.GetActive(ctx, sessiondto.ActiveQuery{}); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}

	start := func(owner *string) string {
		created, err := h.uc.Create(ctx, sessiondto.CreateInput{Owner: owner})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := h.uc.Start(ctx, sessiondto.SessionInput{SessionID: created.ID}); err != nil {
			t.Fatalf("start: %v", err)
		}
		h.clk.Advance(time.Second)
		return created.ID
	}
	anon := start(nil)
	alice := start(strPtr("alice"))
	idle, err := h.uc.Create(ctx, sessiondto.CreateInput{Owner: strPtr("bob")})
	if err != nil {
		t.Fatalf("create idle: %v", err)
	}

	cases := []struct {
		query sessiondto.ActiveQuery
		want  string
	}{
		{sessiondto.ActiveQuery{Scope: sessiondto.ScopeAnyOwner}, alice},
		{sessiondto.ActiveQuery{Scope: sessiondto.ScopeAnonymous}, anon},
		{sessiondto.ActiveQuery{Scope: sessiondto.ScopeOwner, Owner: "alice"}, alice},
	}
	for _, tc := range cases {
		got, err := h.uc.GetActive(ctx, tc.query)
		if err != nil {
			t.Fatalf("get active %+v: %v", tc.query, err)
		}
		if got.ID != tc.want {
			t.Fatalf("query %+v: expected %s got %s", tc.query, tc.want, got.ID)
		}
	}
	if _, err := h.uc.GetActive(ctx, sessiondto.ActiveQuery{Scope: sessiondto.ScopeOwner, Owner: "bob"}); !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("inactive session %s must not match, got %v", idle.ID, err)
	}
	if _, err := h.uc.GetActive(ctx, sessiondto.ActiveQuery{Scope: sessiondto.ScopeOwner}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	h.clk.Advance(time.Second)
	if _, err := h.uc.Pause(ctx, sessiondto.SessionInput{SessionID: anon}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	got, err := h.uc.GetActive(ctx, sessiondto.ActiveQuery{})
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if got.ID != anon {
		t.Fatalf("most recently updated session should win, got %s", got.ID)
	}
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.notifier.err = errors.New("speaker unplugged")
	ctx := context.Background()
	created, err := h.uc.Create(ctx, sessiondto.CreateInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.uc.Start(ctx, sessiondto.SessionInput{SessionID: created.ID}); err != nil {
		t.Fatalf("start must succeed despite notifier failure: %v", err)
	}
	if len(h.notifier.kinds()) != 1 {
		t.Fatalf("notifier should still be called")
	}
}

func TestClientSwitchAfterSchedulerKeepsRestPeriod(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sched := usecase.NewScheduler(h.svc, time.Second, usecase.Options{Notifier: h.notifier, Metrics: h.metrics, Logger: zerolog.Nop()})

	created, err := h.uc.Create(ctx, sessiondto.CreateInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	in := sessiondto.SessionInput{SessionID: created.ID}
	if _, err := h.uc.Start(ctx, in); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.clk.Advance(25 * time.Minute)

	status, err := h.uc.Status(ctx, in)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Expired() || status.PeriodType != "focus" {
		t.Fatalf("expected an expired focus period: %+v", status)
	}
	switched, err := sched.Tick(ctx)
	if err != nil || switched != 1 {
		t.Fatalf("scheduler tick: switched=%d err=%v", switched, err)
	}

	// The client acts on the stale expired reading after the scheduler moved on.
	result, err := h.uc.SwitchIfExpired(ctx, in)
	if err != nil {
		t.Fatalf("switch if expired: %v", err)
	}
	if result.Switched {
		t.Fatalf("rest period must not be skipped: %+v", result.Session)
	}
	if result.Session.PeriodType != "rest" || result.Session.CompletedFocusPeriods != 1 {
		t.Fatalf("unexpected session after client switch: %+v", result.Session)
	}
	if got := len(h.notifier.kinds()); got != 2 {
		t.Fatalf("expected start and one switch event, got %d", got)
	}

	h.clk.Advance(5 * time.Minute)
	result, err = h.uc.SwitchIfExpired(ctx, in)
	if err != nil || !result.Switched {
		t.Fatalf("expired rest period should switch: %+v err=%v", result, err)
	}
	if result.Session.PeriodType != "focus" || result.Session.CompletedFocusPeriods != 1 {
		t.Fatalf("unexpected session after rest: %+v", result.Session)
	}
}

func TestSchedulerSwitchesExpiredRunningSessions(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	sched := usecase.NewScheduler(h.svc, time.Second, usecase.Options{Notifier: h.notifier, Metrics: h.metrics, Logger: zerolog.Nop()})

	running, _ := h.uc.Create(ctx, sessiondto.CreateInput{FocusMinutes: intPtr(1), RestMinutes: intPtr(1)})
	paused, _ := h.uc.Create(ctx, sessiondto.CreateInput{FocusMinutes: intPtr(1), RestMinutes: intPtr(1)})
	idle, _ := h.uc.Create(ctx, sessiondto.CreateInput{FocusMinutes: intPtr(1), RestMinutes: intPtr(1)})
	for _, id := range []string{running.ID, paused.ID} {
		if _, err := h.uc.Start(ctx, sessiondto.SessionInput{SessionID: id}); err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	if _, err := h.uc.Pause(ctx, sessiondto.SessionInput{SessionID: paused.ID}); err != nil {
		t.Fatalf("pause: %v", err)
	}

	h.clk.Advance(59 * time.Second)
	if n, err := sched.Tick(ctx); err != nil || n != 0 {
		t.Fatalf("nothing should switch yet: n=%d err=%v", n, err)
	}
	h.clk.Advance(time.Second)
	n, err := sched.Tick(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one switch: n=%d err=%v", n, err)
	}
	if n, _ := sched.Tick(ctx); n != 0 {
		t.Fatalf("switched session starts a fresh period, got %d switches", n)
	}

	got, err := h.uc.Get(ctx, sessiondto.SessionInput{SessionID: running.ID})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PeriodType != "rest" || got.CompletedFocusPeriods != 1 {
		t.Fatalf("unexpected auto-switched session: %+v", got)
	}
	for _, id := range []string{paused.ID, idle.ID} {
		other, _ := h.uc.Get(ctx, sessiondto.SessionInput{SessionID: id})
		if other.PeriodType != "focus" {
			t.Fatalf("session %s must not switch", id)
		}
	}
	last := h.notifier.events[len(h.notifier.events)-1]
	if last.Trigger != domain.TriggerAuto || last.Kind != domain.TransitionSwitched {
		t.Fatalf("unexpected auto transition %+v", last)
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	sched := usecase.NewScheduler(h.svc, 5*time.Millisecond, usecase.Options{Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
}
