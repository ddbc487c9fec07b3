package in

import (
	"context"

	sessiondto "pomo/internal/modules/session/dto"
	sessionin "pomo/internal/modules/session/port/in"
)

// CLIHandler adapts command-line arguments to the session usecase, which may be
// local or a remote gRPC client.
type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Create(ctx context.Context, focus, rest *int, owner *string) (sessiondto.SessionOutput, error) {
	return h.usecase.Create(ctx, sessiondto.CreateInput{FocusMinutes: focus, RestMinutes: rest, Owner: owner})
}

func (h CLIHandler) Start(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Start(ctx, sessiondto.SessionInput{SessionID: sessionID})
}

func (h CLIHandler) Pause(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Pause(ctx, sessiondto.SessionInput{SessionID: sessionID})
}

func (h CLIHandler) Resume(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Resume(ctx, sessiondto.SessionInput{SessionID: sessionID})
}

func (h CLIHandler) Stop(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Stop(ctx, sessiondto.SessionInput{SessionID: sessionID})
}

func (h CLIHandler) SwitchPeriod(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.SwitchPeriod(ctx, sessiondto.SessionInput{SessionID: sessionID})
}

func (h CLIHandler) SwitchIfExpired(ctx context.Context, sessionID string) (sessiondto.SwitchOutput, error) {
	return h.usecase.SwitchIfExpired(ctx, sessiondto.SessionInput{SessionID: sessionID})
}

func (h CLIHandler) Status(ctx context.Context, sessionID string) (sessiondto.StatusOutput, error) {
	return h.usecase.Status(ctx, sessiondto.SessionInput{SessionID: sessionID})
}

func (h CLIHandler) Get(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Get(ctx, sessiondto.SessionInput{SessionID: sessionID})
}

// Active resolves the owner flags: anonymous wins over owner; neither means any owner.
func (h CLIHandler) Active(ctx context.Context, owner string, anonymous bool) (sessiondto.SessionOutput, error) {
	query := sessiondto.ActiveQuery{Scope: sessiondto.ScopeAnyOwner}
	switch {
	case anonymous:
		query.Scope = sessiondto.ScopeAnonymous
	case owner != "":
		query = sessiondto.ActiveQuery{Scope: sessiondto.ScopeOwner, Owner: owner}
	}
	return h.usecase.GetActive(ctx, query)
}

// ResolveID returns sessionID, or the most recent active session when it is empty.
func (h CLIHandler) ResolveID(ctx context.Context, sessionID, owner string) (string, error) {
	if sessionID != "" {
		return sessionID, nil
	}
	active, err := h.Active(ctx, owner, false)
	if err != nil {
		return "", err
	}
	return active.ID, nil
}
