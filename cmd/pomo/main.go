package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pomo/internal/bootstrap"
	sessiondto "pomo/internal/modules/session/dto"
	"pomo/internal/platform/config"
)

type rootFlags struct {
	overrides config.Overrides
	jsonOut   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "pomo",
		Short:         "Pomodoro focus/rest session timer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.overrides.DataDir, "data-dir", "", "data directory (default $POMO_DATA_DIR or the user config dir)")
	pf.StringVar(&flags.overrides.Store, "store", "", "session store: sqlite|bolt|vault")
	pf.StringVar(&flags.overrides.Server, "server", "", "remote pomo server address; empty runs locally")
	pf.StringVar(&flags.overrides.LogLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.BoolVar(&flags.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(newCreateCmd(flags))
	for _, action := range sessionActions {
		root.AddCommand(newActionCmd(flags, action))
	}
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newShowCmd(flags))
	root.AddCommand(newActiveCmd(flags))
	root.AddCommand(newWatchCmd(flags))
	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newHookCmd(flags))
	return root
}

// withApp loads config, wires the app and closes it after fn returns.
func withApp(ctx context.Context, flags *rootFlags, fn func(*bootstrap.App) error) error {
	cfg, err := config.Load(flags.overrides)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return err
	}
	runErr := fn(app)
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Close(closeCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func newCreateCmd(flags *rootFlags) *cobra.Command {
	var focus, rest int
	var owner string
	var start bool
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session (inactive until started)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var focusPtr, restPtr *int
			var ownerPtr *string
			if cmd.Flags().Changed("focus") {
				focusPtr = &focus
			}
			if cmd.Flags().Changed("rest") {
				restPtr = &rest
			}
			if cmd.Flags().Changed("owner") {
				ownerPtr = &owner
			}
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Create(cmd.Context(), focusPtr, restPtr, ownerPtr)
				if err != nil {
					return err
				}
				if start {
					if out, err = app.SessionCLI.Start(cmd.Context(), out.ID); err != nil {
						return err
					}
				}
				return printSession(cmd.OutOrStdout(), flags, out)
			})
		},
	}
	cmd.Flags().IntVar(&focus, "focus", 0, "focus period minutes (default from config)")
	cmd.Flags().IntVar(&rest, "rest", 0, "rest period minutes (default from config)")
	cmd.Flags().StringVar(&owner, "owner", "", "owner id; omit for an anonymous session")
	cmd.Flags().BoolVar(&start, "start", false, "start the session right away")
	return cmd
}

type sessionAction struct {
	use   string
	short string
	call  func(ctx context.Context, app *bootstrap.App, id string) (sessiondto.SessionOutput, error)
}

var sessionActions = []sessionAction{
	{"start", "Start or restart the focus period", func(ctx context.Context, app *bootstrap.App, id string) (sessiondto.SessionOutput, error) {
		return app.SessionCLI.Start(ctx, id)
	}},
	{"pause", "Freeze the countdown", func(ctx context.Context, app *bootstrap.App, id string) (sessiondto.SessionOutput, error) {
		return app.SessionCLI.Pause(ctx, id)
	}},
	{"resume", "Continue a paused countdown", func(ctx context.Context, app *bootstrap.App, id string) (sessiondto.SessionOutput, error) {
		return app.SessionCLI.Resume(ctx, id)
	}},
	{"stop", "Deactivate the session", func(ctx context.Context, app *bootstrap.App, id string) (sessiondto.SessionOutput, error) {
		return app.SessionCLI.Stop(ctx, id)
	}},
	{"switch", "Move to the next period now", func(ctx context.Context, app *bootstrap.App, id string) (sessiondto.SessionOutput, error) {
		return app.SessionCLI.SwitchPeriod(ctx, id)
	}},
}

func newActionCmd(flags *rootFlags, action sessionAction) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   action.use + " [session-id]",
		Short: action.short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				id, err := app.SessionCLI.ResolveID(cmd.Context(), firstArg(args), owner)
				if err != nil {
					return err
				}
				out, err := action.call(cmd.Context(), app, id)
				if err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), flags, out)
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner used to find the active session when no id is given")
	return cmd
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "status [session-id]",
		Short: "Show the countdown of a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				id, err := app.SessionCLI.ResolveID(cmd.Context(), firstArg(args), owner)
				if err != nil {
					return err
				}
				status, err := app.SessionCLI.Status(cmd.Context(), id)
				if err != nil {
					return err
				}
				if flags.jsonOut {
					return writeJSON(cmd.OutOrStdout(), status)
				}
				state := "running"
				switch {
				case !status.Active:
					state = "stopped"
				case status.Paused:
					state = "paused"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s remaining=%s completed=%d\n",
					status.SessionID, status.PeriodType, state, formatSeconds(status.TimeRemainingSeconds), status.CompletedFocusPeriods)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner used to find the active session when no id is given")
	return cmd
}

func newShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the stored session record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), flags, out)
			})
		},
	}
}

func newActiveCmd(flags *rootFlags) *cobra.Command {
	var owner string
	var anonymous bool
	cmd := &cobra.Command{
		Use:   "active",
		Short: "Show the most recently updated active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				out, err := app.SessionCLI.Active(cmd.Context(), owner, anonymous)
				if err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), flags, out)
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only sessions of this owner")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "only anonymous sessions")
	return cmd
}

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "watch [session-id]",
		Short: "Run the countdown UI; switches periods when time is up",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.overrides.LogLevel == "" {
				flags.overrides.LogLevel = "error"
			}
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				id, err := app.SessionCLI.ResolveID(cmd.Context(), firstArg(args), owner)
				if err != nil {
					return err
				}
				return bootstrap.RunWatch(app, id)
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner used to find the active session when no id is given")
	return cmd
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the gRPC API, auto-advance sessions and export metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				return app.Serve(cmd.Context())
			})
		},
	}
}

func newHookCmd(flags *rootFlags) *cobra.Command {
	hook := &cobra.Command{Use: "hook", Short: "Transition hook plugins"}
	hook.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List hook manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				hooks, err := app.HookCLI.List(cmd.Context())
				if err != nil {
					return err
				}
				if flags.jsonOut {
					return writeJSON(cmd.OutOrStdout(), hooks)
				}
				if len(hooks) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no hooks configured")
					return nil
				}
				for _, h := range hooks {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s enabled=%t binary=%s events=%v\n", h.Name, h.Version, h.Enabled, h.Binary, h.Events)
				}
				return nil
			})
		},
	})
	hook.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Validate hook checksums and lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(app *bootstrap.App) error {
				results, err := app.HookCLI.Doctor(cmd.Context())
				if err != nil {
					return err
				}
				if flags.jsonOut {
					return writeJSON(cmd.OutOrStdout(), results)
				}
				if len(results) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no hooks configured")
					return nil
				}
				for _, r := range results {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s checksum=%t binary=%t lifecycle=%t", r.Name, r.ChecksumValid, r.BinaryReachable, r.LifecycleOK)
					if r.Error != "" {
						_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", r.Error)
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout())
				}
				return nil
			})
		},
	})
	return hook
}

func printSession(w io.Writer, flags *rootFlags, s sessiondto.SessionOutput) error {
	if flags.jsonOut {
		return writeJSON(w, s)
	}
	owner := "-"
	if s.Owner != nil {
		owner = *s.Owner
	}
	state := "inactive"
	switch {
	case s.Active && s.Paused:
		state = "paused"
	case s.Active:
		state = "active"
	}
	_, _ = fmt.Fprintf(w, "%s owner=%s %s period=%s focus=%dm rest=%dm completed=%d", s.ID, owner, state, s.PeriodType, s.FocusMinutes, s.RestMinutes, s.CompletedFocusPeriods)
	if s.Active {
		_, _ = fmt.Fprintf(w, " ends=%s", s.PeriodEnd.Local().Format(time.Kitchen))
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSeconds(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
