package out

import (
	"context"
	"errors"
	"fmt"

	hookdto "pomo/internal/modules/hook/dto"
	hookin "pomo/internal/modules/hook/port/in"
	"pomo/internal/modules/session/domain"
)

// HookNotifier forwards transitions to the hook module.
type HookNotifier struct {
	hooks hookin.Usecase
}

func NewHookNotifier(hooks hookin.Usecase) HookNotifier {
	return HookNotifier{hooks: hooks}
}

func (n HookNotifier) Notify(ctx context.Context, t domain.Transition) error {
	if n.hooks == nil {
		return nil
	}
	out, err := n.hooks.Dispatch(ctx, hookdto.EventInput{
		Kind:                  string(t.Kind),
		SessionID:             t.SessionID,
		Owner:                 t.Owner.Ptr(),
		From:                  string(t.From),
		To:                    string(t.To),
		CompletedFocusPeriods: t.CompletedFocusPeriods,
		Trigger:               string(t.Trigger),
		At:                    t.At,
	})
	if err != nil {
		return fmt.Errorf("dispatch hooks: %w", err)
	}
	errs := make([]error, 0, len(out.Failed))
	for _, failure := range out.Failed {
		errs = append(errs, fmt.Errorf("hook %s: %s", failure.Hook, failure.Error))
	}
	return errors.Join(errs...)
}
