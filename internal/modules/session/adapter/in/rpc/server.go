package rpc

import (
	"context"

	sessiondto "pomo/internal/modules/session/dto"
	sessionin "pomo/internal/modules/session/port/in"
	apperrors "pomo/internal/platform/errors"
	"pomo/internal/platform/grpcserver"

	"google.golang.org/grpc"
)

// Server exposes a session usecase over gRPC. Errors leave as statuses carrying
// their domain code so remote callers can match them with errors.Is.
type Server struct {
	usecase sessionin.Usecase
}

func NewServer(usecase sessionin.Usecase) *Server {
	return &Server{usecase: usecase}
}

// Service returns the registration used by grpcserver.New.
func (s *Server) Service() grpcserver.Service {
	return grpcserver.Service{
		Name: ServiceName,
		Register: func(registrar grpc.ServiceRegistrar) {
			RegisterSessionsServer(registrar, s)
		},
	}
}

func (s *Server) Create(ctx context.Context, in *CreateRequest) (*Session, error) {
	input := sessiondto.CreateInput{Owner: in.Owner}
	if in.FocusMinutes != nil {
		v := int(*in.FocusMinutes)
		input.FocusMinutes = &v
	}
	if in.RestMinutes != nil {
		v := int(*in.RestMinutes)
		input.RestMinutes = &v
	}
	return session(s.usecase.Create(ctx, input))
}

func (s *Server) Start(ctx context.Context, in *SessionRequest) (*Session, error) {
	return session(s.usecase.Start(ctx, sessiondto.SessionInput{SessionID: in.SessionID}))
}

func (s *Server) Pause(ctx context.Context, in *SessionRequest) (*Session, error) {
	return session(s.usecase.Pause(ctx, sessiondto.SessionInput{SessionID: in.SessionID}))
}

func (s *Server) Resume(ctx context.Context, in *SessionRequest) (*Session, error) {
	return session(s.usecase.Resume(ctx, sessiondto.SessionInput{SessionID: in.SessionID}))
}

func (s *Server) Stop(ctx context.Context, in *SessionRequest) (*Session, error) {
	return session(s.usecase.Stop(ctx, sessiondto.SessionInput{SessionID: in.SessionID}))
}

func (s *Server) SwitchPeriod(ctx context.Context, in *SessionRequest) (*Session, error) {
	return session(s.usecase.SwitchPeriod(ctx, sessiondto.SessionInput{SessionID: in.SessionID}))
}

func (s *Server) SwitchIfExpired(ctx context.Context, in *SessionRequest) (*SwitchResult, error) {
	out, err := s.usecase.SwitchIfExpired(ctx, sessiondto.SessionInput{SessionID: in.SessionID})
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &out, nil
}

func (s *Server) Status(ctx context.Context, in *SessionRequest) (*Status, error) {
	out, err := s.usecase.Status(ctx, sessiondto.SessionInput{SessionID: in.SessionID})
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &out, nil
}

func (s *Server) Get(ctx context.Context, in *SessionRequest) (*Session, error) {
	return session(s.usecase.Get(ctx, sessiondto.SessionInput{SessionID: in.SessionID}))
}

func (s *Server) FindActive(ctx context.Context, in *FindActiveRequest) (*Session, error) {
	return session(s.usecase.GetActive(ctx, sessiondto.ActiveQuery{
		Scope: sessiondto.OwnerScope(in.Scope),
		Owner: in.Owner,
	}))
}

func session(out sessiondto.SessionOutput, err error) (*Session, error) {
	if err != nil {
		return nil, apperrors.ToGRPCStatus(err)
	}
	return &out, nil
}
