package usecase

import (
	"context"
	"fmt"

	"pomo/internal/modules/session/domain"
	sessiondto "pomo/internal/modules/session/dto"
	sessionin "pomo/internal/modules/session/port/in"
	sessionout "pomo/internal/modules/session/port/out"
	"pomo/internal/modules/session/service"
	apperrors "pomo/internal/platform/errors"
	"pomo/internal/platform/metrics"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pomo/internal/modules/session")

type Defaults struct {
	FocusMinutes int
	RestMinutes  int
}

type Options struct {
	Defaults Defaults
	Notifier sessionout.Notifier
	Metrics  *metrics.Recorder
	Logger   zerolog.Logger
}

type Interactor struct {
	svc *service.SessionService
	events
	defaults Defaults
}

func NewInteractor(svc *service.SessionService, opts Options) sessionin.Usecase {
	if opts.Defaults.FocusMinutes == 0 {
		opts.Defaults.FocusMinutes = 25
	}
	if opts.Defaults.RestMinutes == 0 {
		opts.Defaults.RestMinutes = 5
	}
	return &Interactor{
		svc:      svc,
		events:   newEvents(opts),
		defaults: opts.Defaults,
	}
}

func (i *Interactor) Create(ctx context.Context, input sessiondto.CreateInput) (out sessiondto.SessionOutput, err error) {
	ctx, end := i.begin(ctx, "create", "")
	defer func() { end(err) }()

	focus, rest := i.defaults.FocusMinutes, i.defaults.RestMinutes
	if input.FocusMinutes != nil {
		focus = *input.FocusMinutes
	}
	if input.RestMinutes != nil {
		rest = *input.RestMinutes
	}
	session, err := i.svc.Create(ctx, focus, rest, domain.OwnerFromPtr(input.Owner))
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("session.id", session.ID))
	return toOutput(session), nil
}

func (i *Interactor) Start(ctx context.Context, input sessiondto.SessionInput) (out sessiondto.SessionOutput, err error) {
	ctx, end := i.begin(ctx, "start", input.SessionID)
	defer func() { end(err) }()

	session, transition, err := i.svc.Start(ctx, input.SessionID)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	i.publish(ctx, transition)
	return toOutput(session), nil
}

func (i *Interactor) Pause(ctx context.Context, input sessiondto.SessionInput) (out sessiondto.SessionOutput, err error) {
	ctx, end := i.begin(ctx, "pause", input.SessionID)
	defer func() { end(err) }()

	session, err := i.svc.Pause(ctx, input.SessionID)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session), nil
}

func (i *Interactor) Resume(ctx context.Context, input sessiondto.SessionInput) (out sessiondto.SessionOutput, err error) {
	ctx, end := i.begin(ctx, "resume", input.SessionID)
	defer func() { end(err) }()

	session, err := i.svc.Resume(ctx, input.SessionID)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session), nil
}

func (i *Interactor) Stop(ctx context.Context, input sessiondto.SessionInput) (out sessiondto.SessionOutput, err error) {
	ctx, end := i.begin(ctx, "stop", input.SessionID)
	defer func() { end(err) }()

	session, transition, err := i.svc.Stop(ctx, input.SessionID)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	i.publish(ctx, transition)
	return toOutput(session), nil
}

func (i *Interactor) SwitchPeriod(ctx context.Context, input sessiondto.SessionInput) (out sessiondto.SessionOutput, err error) {
	ctx, end := i.begin(ctx, "switch_period", input.SessionID)
	defer func() { end(err) }()

	session, transition, err := i.svc.SwitchPeriod(ctx, input.SessionID, domain.TriggerManual)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	i.publish(ctx, transition)
	return toOutput(session), nil
}

// SwitchIfExpired repeats the expiry check under the write lock. Timers use it
// instead of SwitchPeriod.
func (i *Interactor) SwitchIfExpired(ctx context.Context, input sessiondto.SessionInput) (out sessiondto.SwitchOutput, err error) {
	ctx, end := i.begin(ctx, "switch_if_expired", input.SessionID)
	defer func() { end(err) }()

	session, transition, switched, err := i.svc.SwitchIfExpired(ctx, input.SessionID)
	if err != nil {
		return sessiondto.SwitchOutput{}, err
	}
	if switched {
		i.publish(ctx, transition)
	}
	return sessiondto.SwitchOutput{Session: toOutput(session), Switched: switched}, nil
}

func (i *Interactor) Status(ctx context.Context, input sessiondto.SessionInput) (out sessiondto.StatusOutput, err error) {
	ctx, end := i.begin(ctx, "status", input.SessionID)
	defer func() { end(err) }()

	status, err := i.svc.Status(ctx, input.SessionID)
	if err != nil {
		return sessiondto.StatusOutput{}, err
	}
	return toStatusOutput(status), nil
}

func (i *Interactor) Get(ctx context.Context, input sessiondto.SessionInput) (out sessiondto.SessionOutput, err error) {
	ctx, end := i.begin(ctx, "get", input.SessionID)
	defer func() { end(err) }()

	session, err := i.svc.Get(ctx, input.SessionID)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session), nil
}

func (i *Interactor) GetActive(ctx context.Context, query sessiondto.ActiveQuery) (out sessiondto.SessionOutput, err error) {
	ctx, end := i.begin(ctx, "get_active", "")
	defer func() { end(err) }()

	filter, err := ownerFilter(query)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	session, err := i.svc.FindActive(ctx, filter)
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session), nil
}

func ownerFilter(query sessiondto.ActiveQuery) (domain.OwnerFilter, error) {
	switch query.Scope {
	case "", sessiondto.ScopeAnyOwner:
		return domain.AnyOwner(), nil
	case sessiondto.ScopeAnonymous:
		return domain.AnonymousOnly(), nil
	case sessiondto.ScopeOwner:
		if query.Owner == "" {
			return domain.OwnerFilter{}, fmt.Errorf("%w: owner scope needs an owner", apperrors.ErrInvalidInput)
		}
		return domain.OwnedBy(domain.NewOwner(query.Owner)), nil
	default:
		return domain.OwnerFilter{}, fmt.Errorf("%w: unknown owner scope %q", apperrors.ErrInvalidInput, query.Scope)
	}
}

// begin opens a span for op and returns a finisher that records the outcome.
func (i *Interactor) begin(ctx context.Context, op, sessionID string) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "session."+op)
	if sessionID != "" {
		span.SetAttributes(attribute.String("session.id", sessionID))
	}
	return ctx, func(err error) {
		i.metrics.ObserveOperation(op, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			i.logger.Debug().Err(err).Str("op", op).Str("session_id", sessionID).Msg("session operation rejected")
		}
		span.End()
	}
}

func toOutput(s domain.Session) sessiondto.SessionOutput {
	return sessiondto.SessionOutput{
		ID:                    s.ID,
		Owner:                 s.Owner.Ptr(),
		FocusMinutes:          s.FocusMinutes,
		RestMinutes:           s.RestMinutes,
		PeriodType:            string(s.PeriodType),
		PeriodStart:           s.PeriodStart,
		PeriodEnd:             s.PeriodEnd,
		Active:                s.Active,
		Paused:                s.Paused,
		PausedAt:              s.PausedAt,
		CompletedFocusPeriods: s.CompletedFocusPeriods,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
		Version:               s.Version,
	}
}

func toStatusOutput(s domain.Status) sessiondto.StatusOutput {
	return sessiondto.StatusOutput{
		SessionID:             s.SessionID,
		Owner:                 s.Owner.Ptr(),
		PeriodType:            string(s.PeriodType),
		TimeRemainingSeconds:  s.TimeRemainingSeconds,
		Active:                s.Active,
		Paused:                s.Paused,
		CompletedFocusPeriods: s.CompletedFocusPeriods,
		FocusMinutes:          s.FocusMinutes,
		RestMinutes:           s.RestMinutes,
		PeriodEnd:             s.PeriodEnd,
	}
}
