// Command chime is the reference pomo hook. It rings the terminal bell on
// every period switch and appends each event as a JSON line to $POMO_HOOK_LOG.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	hookrpc "pomo/internal/modules/hook/adapter/out/rpc"

	"github.com/hashicorp/go-plugin"
)

type server struct {
	mu sync.Mutex
}

func (s *server) GetMetadata(_ context.Context, _ *hookrpc.Empty) (*hookrpc.Metadata, error) {
	return &hookrpc.Metadata{
		Name:    "chime",
		Version: "1.0.0",
		Events:  []string{"started", "switched", "stopped"},
	}, nil
}

func (s *server) Notify(_ context.Context, in *hookrpc.Event) (*hookrpc.Empty, error) {
	if in.Kind == "switched" {
		fmt.Fprint(os.Stderr, "\a")
	}
	path := os.Getenv("POMO_HOOK_LOG")
	if path == "" {
		return &hookrpc.Empty{}, nil
	}
	line, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open hook log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("write hook log: %w", err)
	}
	return &hookrpc.Empty{}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: hookrpc.HandshakeConfig,
		Plugins:         hookrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
