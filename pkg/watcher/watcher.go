package watcher

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"

	"github.com/akulov/framesweep/pkg/cleaner"
)

type Config struct {
	PollingInterval time.Duration `yaml:"polling_interval"`
	ListenAddr      string        `yaml:"listen_addr"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.DurationVar(&c.PollingInterval, "watch.polling-interval", 1*time.Hour, "How often the watch service runs a dry-run scan.")
	f.StringVar(&c.ListenAddr, "watch.listen-addr", "", "Address to serve /metrics on in watch mode. Empty disables the endpoint.")
}

// Watcher runs a dry-run scan on an interval and exports the plan counts as
// gauges. It never moves or deletes anything.
type Watcher struct {
	services.Service

	cfg       Config
	log       gklog.Logger
	cleaner   *cleaner.Cleaner
	projectID int
	registry  *prometheus.Registry

	failures *atomic.Int64

	srv *http.Server
	lis net.Listener

	plannedDirs  prometheus.Gauge
	plannedBytes prometheus.Gauge
	lastScan     prometheus.Gauge
	failedScans  prometheus.Counter
}

func New(cfg Config, cl *cleaner.Cleaner, projectID int, registry *prometheus.Registry, log gklog.Logger) *Watcher {
	reg := prometheus.WrapRegistererWithPrefix("framesweep_", prometheus.Registerer(registry))

	w := &Watcher{
		cfg:       cfg,
		log:       gklog.With(log, "service", "watcher"),
		cleaner:   cl,
		projectID: projectID,
		registry:  registry,
		failures:  atomic.NewInt64(0),

		plannedDirs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "watch_planned_dirs",
			Help: "Number of directories the last dry-run scan selected for removal.",
		}),
		plannedBytes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "watch_planned_bytes",
			Help: "Approximate size of the directories the last dry-run scan selected.",
		}),
		lastScan: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "watch_last_scan_timestamp_seconds",
			Help: "Unix timestamp of the last successful dry-run scan.",
		}),
		failedScans: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "watch_scans_failed_total",
			Help: "Total number of dry-run scans that failed.",
		}),
	}

	w.Service = services.NewTimerService(cfg.PollingInterval, w.start, w.run, w.stop)
	return w
}

func (w *Watcher) start(ctx context.Context) error {
	if w.cfg.ListenAddr == "" {
		return nil
	}

	lis, err := net.Listen("tcp", w.cfg.ListenAddr)
	if err != nil {
		return errors.Wrap(err, "watcher listen")
	}
	w.lis = lis

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(w.registry, promhttp.HandlerOpts{}))
	w.srv = &http.Server{Handler: mux}

	go func() {
		if err := w.srv.Serve(lis); err != nil && err != http.ErrServerClosed {
			level.Error(w.log).Log("msg", "metrics listener stopped", "err", err)
		}
	}()

	level.Info(w.log).Log("msg", "serving metrics", "addr", lis.Addr().String())
	return nil
}

// stop closes the metrics listener when the timer service terminates.
func (w *Watcher) stop(_ error) error {
	if w.srv == nil {
		return nil
	}

	return w.srv.Close()
}

func (w *Watcher) run(ctx context.Context) error {
	plan, err := w.cleaner.Scan(ctx, w.projectID)
	if err != nil {
		// A failed scan is worth a counter, not a dead service.
		level.Error(w.log).Log("msg", "dry-run scan failed", "err", err)
		w.failedScans.Inc()
		w.failures.Inc()
		return nil
	}

	w.failures.Store(0)
	w.plannedDirs.Set(float64(len(plan.Paths)))
	w.plannedBytes.Set(float64(plan.TotalBytes))
	w.lastScan.SetToCurrentTime()

	level.Info(w.log).Log("msg", fmt.Sprintf("dry-run scan: %d directories (%s) eligible for cleanup",
		len(plan.Paths), humanize.Bytes(uint64(plan.TotalBytes))))
	return nil
}

// ConsecutiveFailures reports how many scans in a row have failed.
func (w *Watcher) ConsecutiveFailures() int64 {
	return w.failures.Load()
}
