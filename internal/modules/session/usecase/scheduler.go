package usecase

import (
	"context"
	"time"

	"pomo/internal/modules/session/service"
)

// Scheduler advances running sessions whose period has ended.
type Scheduler struct {
	svc      *service.SessionService
	interval time.Duration
	events
}

func NewScheduler(svc *service.SessionService, interval time.Duration, opts Options) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		svc:      svc,
		interval: interval,
		events:   newEvents(opts),
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("scheduler tick failed")
			}
		}
	}
}

// Tick performs one pass and returns how many sessions were switched.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	sessions, err := s.svc.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.SetActiveSessions(len(sessions))
	now := s.svc.Now()
	switched := 0
	for _, session := range sessions {
		if !session.Expired(now) {
			continue
		}
		_, transition, ok, err := s.svc.SwitchIfExpired(ctx, session.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("auto switch failed")
			continue
		}
		if !ok {
			continue
		}
		switched++
		s.logger.Debug().
			Str("session_id", session.ID).
			Str("from", string(transition.From)).
			Str("to", string(transition.To)).
			Msg("period ended")
		s.publish(ctx, transition)
	}
	return switched, nil
}
