package framesweep

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/akulov/framesweep/pkg/archiver"
	"github.com/akulov/framesweep/pkg/cleaner"
	"github.com/akulov/framesweep/pkg/history"
	"github.com/akulov/framesweep/pkg/history/record"
	"github.com/akulov/framesweep/pkg/mover"
	"github.com/akulov/framesweep/pkg/notifier"
	"github.com/akulov/framesweep/pkg/tracker"
	util_log "github.com/akulov/framesweep/pkg/util/log"
	"github.com/akulov/framesweep/pkg/watcher"
)

const (
	ModeScan   = "scan"
	ModeMove   = "move"
	ModeDelete = "delete"
	ModeWatch  = "watch"
)

type Config struct {
	ProjectID int `yaml:"project_id"`

	Tracker  tracker.Config  `yaml:"tracker"`
	Cleaner  cleaner.Config  `yaml:"cleaner"`
	Archive  archiver.Config `yaml:"archive"`
	History  history.Config  `yaml:"history"`
	Notifier notifier.Config `yaml:"notifier"`
	Watch    watcher.Config  `yaml:"watch"`
	Log      util_log.Config `yaml:"log"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&c.ProjectID, "project-id", 0, "Tracker ID of the project to clean up.")

	c.Tracker.RegisterFlags(f)
	c.Cleaner.RegisterFlags(f)
	c.Watch.RegisterFlags(f)
	c.Log.RegisterFlags(f)
}

func (c *Config) Validate() error {
	if c.ProjectID <= 0 {
		return errors.New("project id is required")
	}

	return c.Cleaner.Validate()
}

// App wires the scan pipeline to its collaborators. The scan/commit split is
// strict: Scan never mutates anything, Move and Delete consume a finished
// plan.
type App struct {
	cfg Config
	log gklog.Logger
	reg *prometheus.Registry

	cleaner *cleaner.Cleaner
	mover   *mover.Mover
}

func New(cfg Config, reg *prometheus.Registry, log gklog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	finder := tracker.NewClient(cfg.Tracker)

	progress := func(stage cleaner.Stage, done, total int) {
		level.Debug(log).Log("stage", string(stage), "done", done, "total", total)
	}

	cl, err := cleaner.New(cfg.Cleaner, finder, progress, reg, log)
	if err != nil {
		return nil, errors.Wrap(err, "init cleaner")
	}

	return &App{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		cleaner: cl,
		mover:   mover.New(log),
	}, nil
}

// Scan computes and logs the removal plan without touching anything.
func (a *App) Scan(ctx context.Context) (*cleaner.Plan, error) {
	plan, err := a.cleaner.Scan(ctx, a.cfg.ProjectID)
	if err != nil {
		return nil, err
	}

	if len(plan.Paths) == 0 {
		level.Info(a.log).Log("msg", "no sequence directories found to clean up")
	}
	level.Info(a.log).Log("msg", fmt.Sprintf("scan summary: %d directories, approximately %s",
		len(plan.Paths), humanize.Bytes(uint64(plan.TotalBytes))))

	return plan, nil
}

// Move scans, then relocates the planned directories into destRoot.
func (a *App) Move(ctx context.Context, destRoot string) (*mover.Report, error) {
	started := time.Now()

	plan, err := a.Scan(ctx)
	if err != nil {
		return nil, err
	}

	rep, err := a.mover.Move(ctx, plan.Paths, destRoot, a.moveProgress())
	if err != nil {
		return nil, err
	}

	a.finishRun(ctx, ModeMove, plan, rep, started)
	return rep, nil
}

// Delete scans, then removes the planned directories, archiving each one
// first when an archive store is configured.
func (a *App) Delete(ctx context.Context) (*mover.Report, error) {
	started := time.Now()

	plan, err := a.Scan(ctx)
	if err != nil {
		return nil, err
	}

	var pre mover.PreRemoveFunc
	if a.cfg.Archive.Enabled() {
		writer, err := archiver.NewWriter(a.cfg.Archive)
		if err != nil {
			return nil, errors.Wrap(err, "init archive writer")
		}
		pre = writer.StoreDir
	}

	rep := a.mover.Delete(ctx, plan.Paths, pre, a.moveProgress())

	a.finishRun(ctx, ModeDelete, plan, rep, started)
	return rep, nil
}

// Watch runs periodic dry-run scans until the context is cancelled or a
// termination signal arrives.
func (a *App) Watch(ctx context.Context) error {
	w := watcher.New(a.cfg.Watch, a.cleaner, a.cfg.ProjectID, a.reg, a.log)

	if err := services.StartAndAwaitRunning(ctx, w); err != nil {
		return errors.Wrap(err, "start watch service")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case s := <-sigCh:
		level.Info(a.log).Log("msg", "received signal, shutting down", "signal", s.String())
	}

	return services.StopAndAwaitTerminated(context.Background(), w)
}

func (a *App) moveProgress() mover.ProgressFunc {
	return func(done, total int) {
		level.Debug(a.log).Log("msg", fmt.Sprintf("processed %d of %d directories", done, total))
	}
}

// finishRun records the run in history and publishes a notification when
// configured. Both are best-effort: a dead sidecar never fails a finished
// cleanup.
func (a *App) finishRun(ctx context.Context, mode string, plan *cleaner.Plan, rep *mover.Report, started time.Time) {
	runID := uuid.NewString()

	if a.cfg.History.Enabled() {
		if err := a.appendHistory(ctx, runID, mode, plan, rep, started); err != nil {
			level.Error(a.log).Log("msg", "failed to record run history", "err", err)
		}
	}

	if a.cfg.Notifier.Enabled() {
		if err := a.notifyRun(runID, mode, plan, rep, started); err != nil {
			level.Error(a.log).Log("msg", "failed to publish run report", "err", err)
		}
	}
}

func (a *App) appendHistory(ctx context.Context, runID, mode string, plan *cleaner.Plan, rep *mover.Report, started time.Time) error {
	store, err := history.NewStore(ctx, a.cfg.History, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Dispose(ctx); err != nil {
			level.Error(a.log).Log("msg", "failed to close history store", "err", err)
		}
	}()

	run := record.New(runID, a.cfg.ProjectID, mode, started)
	run.FinishedAt = time.Now()
	run.Planned = rep.Total
	run.Succeeded = rep.Succeeded
	run.Failed = rep.Failed
	run.Skipped = rep.Skipped
	if rep.Failed > 0 {
		run.Status = record.StatusFailed
	}
	run.Details = rep.String()

	return store.AppendRun(ctx, run)
}

func (a *App) notifyRun(runID, mode string, plan *cleaner.Plan, rep *mover.Report, started time.Time) error {
	n, err := notifier.New(a.cfg.Notifier, a.log)
	if err != nil {
		return err
	}

	return n.NotifyRun(&notifier.RunReport{
		RunID:      runID,
		ProjectID:  a.cfg.ProjectID,
		Mode:       mode,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Planned:    rep.Total,
		Succeeded:  rep.Succeeded,
		Failed:     rep.Failed,
		Skipped:    rep.Skipped,
		TotalBytes: plan.TotalBytes,
	})
}
