package out

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	hookrpc "pomo/internal/modules/hook/adapter/out/rpc"
	"pomo/internal/modules/hook/domain"
	hookout "pomo/internal/modules/hook/port/out"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/rs/zerolog"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// GRPCHost launches a hook binary per call and talks to it over go-plugin gRPC.
type GRPCHost struct {
	logger hclog.Logger
}

// NewGRPCHost routes go-plugin's own logging to logger at debug level.
func NewGRPCHost(logger zerolog.Logger) hookout.Host {
	output := io.Discard
	if logger.GetLevel() <= zerolog.DebugLevel {
		output = logger
	}
	return &GRPCHost{logger: hclog.New(&hclog.LoggerOptions{
		Name:   "hook",
		Output: output,
		Level:  hclog.Debug,
	})}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	_, err := h.GetMetadata(ctx, manifest)
	return err
}

func (h *GRPCHost) GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer closeFn()

	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("get metadata: %w", err)
	}
	events := make([]domain.EventKind, 0, len(meta.Events))
	for _, e := range meta.Events {
		events = append(events, domain.EventKind(e))
	}
	return domain.Metadata{Name: meta.Name, Version: meta.Version, Events: events}, nil
}

func (h *GRPCHost) Notify(ctx context.Context, manifest domain.Manifest, event domain.Event) error {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return err
	}
	defer closeFn()

	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	err = client.Notify(callCtx, &hookrpc.Event{
		Kind:                  string(event.Kind),
		SessionID:             event.SessionID,
		Owner:                 event.Owner,
		From:                  event.From,
		To:                    event.To,
		CompletedFocusPeriods: int32(event.CompletedFocusPeriods),
		Trigger:               event.Trigger,
		At:                    event.At,
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s", domain.ErrHookTimeout, manifest.Name)
		}
		return fmt.Errorf("notify hook: %w", err)
	}
	return nil
}

func (h *GRPCHost) connect(manifest domain.Manifest) (hookrpc.HookClient, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  hookrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          hookrpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           h.logger.Named(manifest.Name),
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("start hook client: %w", err)
	}
	raw, err := rpcClient.Dispense(hookrpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense hook: %w", err)
	}
	typed, ok := raw.(hookrpc.HookClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("hook rpc client type mismatch")
	}
	return typed, closeFn, nil
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
