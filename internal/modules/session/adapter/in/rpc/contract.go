package rpc

import (
	"context"
	"fmt"

	sessiondto "pomo/internal/modules/session/dto"
	"pomo/internal/platform/rpcjson"

	"google.golang.org/grpc"
)

const (
	ServiceName = "pomo.session.v1.Sessions"

	methodCreate       = "/" + ServiceName + "/Create"
	methodStart        = "/" + ServiceName + "/Start"
	methodPause        = "/" + ServiceName + "/Pause"
	methodResume       = "/" + ServiceName + "/Resume"
	methodStop         = "/" + ServiceName + "/Stop"
	methodSwitchPeriod = "/" + ServiceName + "/SwitchPeriod"
	methodSwitchIfExp  = "/" + ServiceName + "/SwitchIfExpired"
	methodStatus       = "/" + ServiceName + "/Status"
	methodGet          = "/" + ServiceName + "/Get"
	methodFindActive   = "/" + ServiceName + "/FindActive"
)

// CreateRequest leaves durations unset to take the server defaults.
type CreateRequest struct {
	FocusMinutes *int32  `json:"focus_duration,omitempty"`
	RestMinutes  *int32  `json:"rest_duration,omitempty"`
	Owner        *string `json:"owner,omitempty"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type FindActiveRequest struct {
	Scope string `json:"scope"`
	Owner string `json:"owner,omitempty"`
}

type Session = sessiondto.SessionOutput

type Status = sessiondto.StatusOutput

type SwitchResult = sessiondto.SwitchOutput

type SessionsServer interface {
	Create(ctx context.Context, in *CreateRequest) (*Session, error)
	Start(ctx context.Context, in *SessionRequest) (*Session, error)
	Pause(ctx context.Context, in *SessionRequest) (*Session, error)
	Resume(ctx context.Context, in *SessionRequest) (*Session, error)
	Stop(ctx context.Context, in *SessionRequest) (*Session, error)
	SwitchPeriod(ctx context.Context, in *SessionRequest) (*Session, error)
	SwitchIfExpired(ctx context.Context, in *SessionRequest) (*SwitchResult, error)
	Status(ctx context.Context, in *SessionRequest) (*Status, error)
	Get(ctx context.Context, in *SessionRequest) (*Session, error)
	FindActive(ctx context.Context, in *FindActiveRequest) (*Session, error)
}

func RegisterSessionsServer(server grpc.ServiceRegistrar, impl SessionsServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*SessionsServer)(nil),
		Methods: []grpc.MethodDesc{
			unary("Create", methodCreate, impl.Create),
			unary("Start", methodStart, impl.Start),
			unary("Pause", methodPause, impl.Pause),
			unary("Resume", methodResume, impl.Resume),
			unary("Stop", methodStop, impl.Stop),
			unary("SwitchPeriod", methodSwitchPeriod, impl.SwitchPeriod),
			unary("SwitchIfExpired", methodSwitchIfExp, impl.SwitchIfExpired),
			unary("Status", methodStatus, impl.Status),
			unary("Get", methodGet, impl.Get),
			unary("FindActive", methodFindActive, impl.FindActive),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "pomo/session/v1/sessions.json",
	}, impl)
}

func unary[Req, Resp any](name, fullMethod string, call func(context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				typed, ok := req.(*Req)
				if !ok {
					return nil, fmt.Errorf("invalid request type %T", req)
				}
				return call(ctx, typed)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type SessionsClient struct {
	conn grpc.ClientConnInterface
}

func NewSessionsClient(conn grpc.ClientConnInterface) *SessionsClient {
	return &SessionsClient{conn: conn}
}

func invoke[Resp any](ctx context.Context, conn grpc.ClientConnInterface, method string, in any) (*Resp, error) {
	out := new(Resp)
	if err := conn.Invoke(ctx, method, in, out, rpcjson.CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SessionsClient) Create(ctx context.Context, in *CreateRequest) (*Session, error) {
	return invoke[Session](ctx, c.conn, methodCreate, in)
}

func (c *SessionsClient) Start(ctx context.Context, in *SessionRequest) (*Session, error) {
	return invoke[Session](ctx, c.conn, methodStart, in)
}

func (c *SessionsClient) Pause(ctx context.Context, in *SessionRequest) (*Session, error) {
	return invoke[Session](ctx, c.conn, methodPause, in)
}

func (c *SessionsClient) Resume(ctx context.Context, in *SessionRequest) (*Session, error) {
	return invoke[Session](ctx, c.conn, methodResume, in)
}

func (c *SessionsClient) Stop(ctx context.Context, in *SessionRequest) (*Session, error) {
	return invoke[Session](ctx, c.conn, methodStop, in)
}

func (c *SessionsClient) SwitchPeriod(ctx context.Context, in *SessionRequest) (*Session, error) {
	return invoke[Session](ctx, c.conn, methodSwitchPeriod, in)
}

func (c *SessionsClient) SwitchIfExpired(ctx context.Context, in *SessionRequest) (*SwitchResult, error) {
	return invoke[SwitchResult](ctx, c.conn, methodSwitchIfExp, in)
}

func (c *SessionsClient) Status(ctx context.Context, in *SessionRequest) (*Status, error) {
	return invoke[Status](ctx, c.conn, methodStatus, in)
}

func (c *SessionsClient) Get(ctx context.Context, in *SessionRequest) (*Session, error) {
	return invoke[Session](ctx, c.conn, methodGet, in)
}

func (c *SessionsClient) FindActive(ctx context.Context, in *FindActiveRequest) (*Session, error) {
	return invoke[Session](ctx, c.conn, methodFindActive, in)
}
