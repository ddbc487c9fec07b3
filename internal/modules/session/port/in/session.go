package in

import (
	"context"

	"pomo/internal/modules/session/dto"
)

type Usecase interface {
	Create(ctx context.Context, input dto.CreateInput) (dto.SessionOutput, error)
	Start(ctx context.Context, input dto.SessionInput) (dto.SessionOutput, error)
	Pause(ctx context.Context, input dto.SessionInput) (dto.SessionOutput, error)
	Resume(ctx context.Context, input dto.SessionInput) (dto.SessionOutput, error)
	Stop(ctx context.Context, input dto.SessionInput) (dto.SessionOutput, error)
	SwitchPeriod(ctx context.Context, input dto.SessionInput) (dto.SessionOutput, error)
	SwitchIfExpired(ctx context.Context, input dto.SessionInput) (dto.SwitchOutput, error)
	Status(ctx context.Context, input dto.SessionInput) (dto.StatusOutput, error)
	Get(ctx context.Context, input dto.SessionInput) (dto.SessionOutput, error)
	GetActive(ctx context.Context, query dto.ActiveQuery) (dto.SessionOutput, error)
}
