package domain

import apperrors "pomo/internal/platform/errors"

var (
	ErrInvalidDuration = apperrors.New(apperrors.CodeInvalidDuration, "durations must be positive whole minutes")
	ErrNotPaused       = apperrors.New(apperrors.CodeNotPaused, "session is not paused")
	ErrNotActive       = apperrors.New(apperrors.CodeNotActive, "session is not active")
	ErrInactiveSession = apperrors.New(apperrors.CodeInactiveSession, "cannot switch the period of an inactive session")
)
