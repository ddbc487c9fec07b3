package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	hookinadapter "pomo/internal/modules/hook/adapter/in"
	hookoutadapter "pomo/internal/modules/hook/adapter/out"
	hookservice "pomo/internal/modules/hook/service"
	hookusecase "pomo/internal/modules/hook/usecase"
	sessioninadapter "pomo/internal/modules/session/adapter/in"
	sessionrpc "pomo/internal/modules/session/adapter/in/rpc"
	sessionoutadapter "pomo/internal/modules/session/adapter/out"
	sessionin "pomo/internal/modules/session/port/in"
	sessionout "pomo/internal/modules/session/port/out"
	sessionservice "pomo/internal/modules/session/service"
	sessionusecase "pomo/internal/modules/session/usecase"
	"pomo/internal/platform/clock"
	"pomo/internal/platform/config"
	"pomo/internal/platform/grpcserver"
	"pomo/internal/platform/id"
	"pomo/internal/platform/logging"
	"pomo/internal/platform/metrics"
	"pomo/internal/platform/otel"
	"pomo/internal/platform/tx"
	uiapp "pomo/internal/ui/app"
)

const serviceName = "pomo"

type Options struct {
	// LogWriter defaults to stderr.
	LogWriter io.Writer
}

type App struct {
	Config  config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Recorder

	SessionCLI sessioninadapter.CLIHandler
	HookCLI    hookinadapter.CLIHandler

	sessions  sessionin.Usecase
	scheduler *sessionusecase.Scheduler
	closers   []func(context.Context) error
}

// New wires the application. With cfg.Server set, session operations go to
// that remote server and no local store is opened.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	writer := opts.LogWriter
	if writer == nil {
		writer = os.Stderr
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: writer})
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger, Metrics: metrics.NewRecorder()}

	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	app.closers = append(app.closers, shutdownTracing)

	hookUC := hookusecase.NewInteractor(hookservice.NewHookService(
		hookoutadapter.NewFileManifestStore(cfg.HooksDir()),
		hookoutadapter.NewGRPCHost(logger),
	))
	app.HookCLI = hookinadapter.NewCLIHandler(hookUC)

	if cfg.Server != "" {
		client, err := sessionrpc.Dial(cfg.Server)
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return client.Close() })
		app.sessions = client
		app.SessionCLI = sessioninadapter.NewCLIHandler(client)
		return app, nil
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	app.closers = append(app.closers, func(context.Context) error { return store.Close() })

	svc := sessionservice.NewSessionService(clock.SystemClock{}, id.UUID{}, store, tx.NewKeyedMutex())
	usecaseOpts := sessionusecase.Options{
		Defaults: sessionusecase.Defaults{
			FocusMinutes: cfg.DefaultFocusMinutes,
			RestMinutes:  cfg.DefaultRestMinutes,
		},
		Notifier: sessionoutadapter.Notifiers{
			sessionoutadapter.NewLogNotifier(logger),
			sessionoutadapter.NewHookNotifier(hookUC),
		},
		Metrics: app.Metrics,
		Logger:  logger,
	}
	app.sessions = sessionusecase.NewInteractor(svc, usecaseOpts)
	app.scheduler = sessionusecase.NewScheduler(svc, cfg.PollInterval, usecaseOpts)
	app.SessionCLI = sessioninadapter.NewCLIHandler(app.sessions)
	return app, nil
}

func openStore(ctx context.Context, cfg config.Config) (sessionout.SessionStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	switch cfg.Store {
	case config.StoreBolt:
		return sessionoutadapter.NewBoltSessionStore(filepath.Join(cfg.DataDir, "pomo.bolt"))
	case config.StoreVault:
		return sessionoutadapter.NewVaultSessionStore(filepath.Join(cfg.DataDir, "vault"))
	default:
		return sessionoutadapter.NewSQLiteSessionStore(ctx, cfg.DBPath)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Serve runs the gRPC API, the auto-advance scheduler and the metrics endpoint
// until ctx is cancelled or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	if a.scheduler == nil {
		return fmt.Errorf("serve needs a local store; unset the remote server address")
	}
	grpcSrv, err := grpcserver.New(a.Config.GRPCAddr, a.Logger, sessionrpc.NewServer(a.sessions).Service())
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	metricsSrv := &http.Server{Addr: a.Config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return grpcSrv.Serve(groupCtx) })
	group.Go(func() error { return a.scheduler.Run(groupCtx) })
	group.Go(func() error {
		a.Logger.Info().Str("addr", a.Config.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func RunWatch(app *App, sessionID string) error {
	model := uiapp.NewModel(app.SessionCLI, sessionID)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
