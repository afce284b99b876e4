package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coopco/wishbot/internal/auth"
	"github.com/coopco/wishbot/internal/bus"
	"github.com/coopco/wishbot/internal/channels"
	"github.com/coopco/wishbot/internal/command"
	"github.com/coopco/wishbot/internal/config"
	"github.com/coopco/wishbot/internal/delivery"
	"github.com/coopco/wishbot/internal/httpapi"
	"github.com/coopco/wishbot/internal/schedule"
	"github.com/coopco/wishbot/internal/store"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: transports, command dispatcher, scheduler and admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			closeLog, err := setupLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// panicError is a panic recovered from one of the serve goroutines.
type panicError struct {
	task  string
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.task, e.value)
}

// guard runs fn, turning a panic into a *panicError.
func guard(task string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("serve task panicked", "task", task, "panic", r, "stack", string(debug.Stack()))
				err = &panicError{task: task, value: r}
			}
		}()
		return fn()
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	st, docs, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer docs.Close()

	msgBus := bus.NewMessageBus(100)
	defer msgBus.Close()

	mgr := channels.NewManager(msgBus)
	for name, raw := range cfg.Channels {
		if err := mgr.AddChannel(name, raw); err != nil {
			return err
		}
	}
	if len(mgr.Names()) == 0 {
		slog.Warn("no channels configured, wishes will fail to deliver")
	}

	gw := delivery.New(mgr, cfg.SendTimeout())
	engine := schedule.NewEngine(st, gw, nil)
	runner, err := schedule.NewRunner(engine, cfg.Scheduler.Spec)
	if err != nil {
		return err
	}

	policy := &auth.Policy{Owner: cfg.Owner(), Whitelist: st, Mode: cfg.AuthMode()}
	reg := command.NewRegistry()
	reg.Register(command.Builtins(&command.Env{
		Store:   st,
		Policy:  policy,
		Gateway: gw,
		Prefix:  cfg.Bot.CommandPrefix,
		Now:     time.Now,
	})...)
	disp := command.NewDispatcher(msgBus, reg, st, policy, cfg.Bot.CommandPrefix)

	g, gctx := errgroup.WithContext(ctx)
	if err := mgr.StartAll(gctx); err != nil {
		return err
	}
	defer mgr.StopAll()

	g.Go(guard("outbound", func() error {
		msgBus.DispatchOutbound(gctx)
		return nil
	}))
	g.Go(guard("dispatcher", func() error {
		return ignoreCanceled(disp.Run(gctx))
	}))
	g.Go(guard("scheduler", func() error {
		return runner.Run(gctx)
	}))
	if cfg.Admin.Addr != "" {
		api := httpapi.New(st, engine, httpapi.NewTokens(cfg.Admin.JWTSecret))
		g.Go(guard("admin", func() error {
			return api.ListenAndServe(gctx, cfg.Admin.Addr)
		}))
	}

	slog.Info("wishbot running",
		"owner", cfg.Owner().Address,
		"channels", mgr.Names(),
		"backend", cfg.Storage.Backend,
		"mode", cfg.AuthMode(),
		"admin", cfg.Admin.Addr)

	err = g.Wait()

	var pe *panicError
	switch {
	case errors.As(err, &pe):
		finalBackup(st, "panic")
	case ctx.Err() != nil:
		finalBackup(st, "shutdown")
	}
	if err != nil {
		return err
	}
	slog.Info("wishbot stopped")
	return nil
}

// finalBackup writes a backup on the way out. The serve context is already
// done, so it gets its own deadline.
func finalBackup(st *store.Store, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	name, err := st.Backup(ctx)
	if err != nil {
		slog.Error("exit backup failed", "reason", reason, "error", err)
		return
	}
	slog.Info("exit backup written", "reason", reason, "file", name)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
