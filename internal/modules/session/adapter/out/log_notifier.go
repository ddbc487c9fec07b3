package out

import (
	"context"
	"errors"

	"pomo/internal/modules/session/domain"
	sessionout "pomo/internal/modules/session/port/out"

	"github.com/rs/zerolog"
)

type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) LogNotifier {
	return LogNotifier{logger: logger.With().Str("component", "transitions").Logger()}
}

func (n LogNotifier) Notify(_ context.Context, t domain.Transition) error {
	n.logger.Info().
		Str("session_id", t.SessionID).
		Str("event", string(t.Kind)).
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Str("trigger", string(t.Trigger)).
		Int("completed_focus_periods", t.CompletedFocusPeriods).
		Time("at", t.At).
		Msg("period transition")
	return nil
}

// Notifiers fans a transition out to every notifier and joins their errors.
type Notifiers []sessionout.Notifier

func (ns Notifiers) Notify(ctx context.Context, t domain.Transition) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
