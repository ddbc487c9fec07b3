package rpc

import (
	"context"
	"fmt"
	"math"

	sessiondto "pomo/internal/modules/session/dto"
	sessionin "pomo/internal/modules/session/port/in"
	apperrors "pomo/internal/platform/errors"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client implements the session usecase against a remote pomo server.
type Client struct {
	conn *grpc.ClientConn
	rpc  *SessionsClient
}

var _ sessionin.Usecase = (*Client)(nil)

func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial session server %s: %w", addr, err)
	}
	return &Client{conn: conn, rpc: NewSessionsClient(conn)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Create(ctx context.Context, input sessiondto.CreateInput) (sessiondto.SessionOutput, error) {
	req := &CreateRequest{Owner: input.Owner}
	var err error
	if req.FocusMinutes, err = minutes32(input.FocusMinutes); err != nil {
		return sessiondto.SessionOutput{}, err
	}
	if req.RestMinutes, err = minutes32(input.RestMinutes); err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return output(c.rpc.Create(ctx, req))
}

func (c *Client) Start(ctx context.Context, input sessiondto.SessionInput) (sessiondto.SessionOutput, error) {
	return output(c.rpc.Start(ctx, &SessionRequest{SessionID: input.SessionID}))
}

func (c *Client) Pause(ctx context.Context, input sessiondto.SessionInput) (sessiondto.SessionOutput, error) {
	return output(c.rpc.Pause(ctx, &SessionRequest{SessionID: input.SessionID}))
}

func (c *Client) Resume(ctx context.Context, input sessiondto.SessionInput) (sessiondto.SessionOutput, error) {
	return output(c.rpc.Resume(ctx, &SessionRequest{SessionID: input.SessionID}))
}

func (c *Client) Stop(ctx context.Context, input sessiondto.SessionInput) (sessiondto.SessionOutput, error) {
	return output(c.rpc.Stop(ctx, &SessionRequest{SessionID: input.SessionID}))
}

func (c *Client) SwitchPeriod(ctx context.Context, input sessiondto.SessionInput) (sessiondto.SessionOutput, error) {
	return output(c.rpc.SwitchPeriod(ctx, &SessionRequest{SessionID: input.SessionID}))
}

func (c *Client) SwitchIfExpired(ctx context.Context, input sessiondto.SessionInput) (sessiondto.SwitchOutput, error) {
	out, err := c.rpc.SwitchIfExpired(ctx, &SessionRequest{SessionID: input.SessionID})
	if err != nil {
		return sessiondto.SwitchOutput{}, apperrors.FromGRPCStatus(err)
	}
	return *out, nil
}

func (c *Client) Status(ctx context.Context, input sessiondto.SessionInput) (sessiondto.StatusOutput, error) {
	out, err := c.rpc.Status(ctx, &SessionRequest{SessionID: input.SessionID})
	if err != nil {
		return sessiondto.StatusOutput{}, apperrors.FromGRPCStatus(err)
	}
	return *out, nil
}

func (c *Client) Get(ctx context.Context, input sessiondto.SessionInput) (sessiondto.SessionOutput, error) {
	return output(c.rpc.Get(ctx, &SessionRequest{SessionID: input.SessionID}))
}

func (c *Client) GetActive(ctx context.Context, query sessiondto.ActiveQuery) (sessiondto.SessionOutput, error) {
	return output(c.rpc.FindActive(ctx, &FindActiveRequest{Scope: string(query.Scope), Owner: query.Owner}))
}

func output(out *Session, err error) (sessiondto.SessionOutput, error) {
	if err != nil {
		return sessiondto.SessionOutput{}, apperrors.FromGRPCStatus(err)
	}
	return *out, nil
}

func minutes32(v *int) (*int32, error) {
	if v == nil {
		return nil, nil
	}
	if *v < math.MinInt32 || *v > math.MaxInt32 {
		return nil, apperrors.New(apperrors.CodeInvalidDuration, "duration out of range")
	}
	m := int32(*v)
	return &m, nil
}
