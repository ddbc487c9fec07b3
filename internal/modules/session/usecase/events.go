package usecase

import (
	"context"

	"pomo/internal/modules/session/domain"
	sessionout "pomo/internal/modules/session/port/out"
	"pomo/internal/platform/metrics"

	"github.com/rs/zerolog"
)

// events publishes transitions. Notifier failures are logged and never fail the operation.
type events struct {
	notifier sessionout.Notifier
	metrics  *metrics.Recorder
	logger   zerolog.Logger
}

func newEvents(opts Options) events {
	return events{notifier: opts.Notifier, metrics: opts.Metrics, logger: opts.Logger}
}

func (e events) publish(ctx context.Context, t domain.Transition) {
	if t.IsZero() {
		return
	}
	e.metrics.ObserveTransition(string(t.From), string(t.To), string(t.Trigger))
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, t); err != nil {
		e.logger.Warn().Err(err).
			Str("session_id", t.SessionID).
			Str("event", string(t.Kind)).
			Msg("transition notifier failed")
	}
}
