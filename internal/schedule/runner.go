package schedule

import (
	"context"
	"fmt"
	"log/slog"

	robfigcron "github.com/robfig/cron/v3"
)

// DefaultSpec fires at the start of every minute.
const DefaultSpec = "* * * * *"

// Runner drives an Engine from a cron schedule.
type Runner struct {
	scheduler *robfigcron.Cron
	engine    *Engine
	spec      string
	ctx       context.Context
}

func NewRunner(engine *Engine, spec string) (*Runner, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	logger := cronLogger{}
	r := &Runner{
		scheduler: robfigcron.New(
			robfigcron.WithLogger(logger),
			robfigcron.WithChain(robfigcron.Recover(logger), robfigcron.SkipIfStillRunning(logger)),
		),
		engine: engine,
		spec:   spec,
		ctx:    context.Background(),
	}
	if _, err := r.scheduler.AddFunc(spec, r.tick); err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}
	return r, nil
}

func (r *Runner) tick() {
	rep := r.engine.Tick(r.ctx)
	if rep.Total() > 0 {
		slog.Info("scheduler tick",
			"stamp", rep.Stamp.String(),
			"sent", rep.Sent,
			"failed", rep.Failed,
			"group_wishes", rep.GroupWishes)
	}
}

// Run starts the schedule and blocks until ctx is done. A tick in flight
// is allowed to finish before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	r.ctx = ctx
	r.scheduler.Start()
	slog.Info("scheduler started", "spec", r.spec)
	<-ctx.Done()
	<-r.scheduler.Stop().Done()
	slog.Info("scheduler stopped")
	return nil
}

// cronLogger routes robfig/cron's logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
