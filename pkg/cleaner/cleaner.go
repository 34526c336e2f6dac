package cleaner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/akulov/framesweep/pkg/tracker"
)

// Stage names a pipeline step, for progress reporting.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageFilter  Stage = "filter"
	StageGroup   Stage = "group"
	StageRules   Stage = "rules"
	StageResolve Stage = "resolve"
)

// ProgressFunc is invoked after each discrete pipeline step. It makes no
// assumption about what renders the progress; a caller may drive a UI
// refresh or ignore it entirely.
type ProgressFunc func(stage Stage, done, total int)

// VersionFinder is the record fetcher collaborator. The engine does not care
// whether records come from a REST call or a test fixture.
type VersionFinder interface {
	FindVersions(ctx context.Context, projectID int) ([]tracker.Version, error)
}

// ScanStats counts what happened to every record during one scan.
type ScanStats struct {
	Fetched        int `json:"fetched"`
	Kept           int `json:"kept"`
	NonSequence    int `json:"non_sequence"`
	ExcludedByStep int `json:"excluded_by_step"`
	Ungrouped      int `json:"ungrouped"`
	Groups         int `json:"groups"`
	MissingPaths   int `json:"missing_paths"`
	Selected       int `json:"selected"`
}

// Plan is the complete, side-effect-free result of one scan: the ordered,
// deduplicated directories to act on, the audit manifest, and counters. It
// is recomputed from scratch on every scan and never persisted.
type Plan struct {
	ProjectID  int       `json:"project_id"`
	Paths      []string  `json:"paths"`
	Manifest   []Removal `json:"manifest"`
	Stats      ScanStats `json:"stats"`
	TotalBytes int64     `json:"total_bytes"`
}

type Cleaner struct {
	cfg      Config
	log      gklog.Logger
	finder   VersionFinder
	progress ProgressFunc
	metrics  *metrics
}

func New(cfg Config, finder VersionFinder, progress ProgressFunc, reg prometheus.Registerer, log gklog.Logger) (*Cleaner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if finder == nil {
		return nil, errors.New("cleaner: nil version finder")
	}
	if progress == nil {
		progress = func(Stage, int, int) {}
	}

	// Flag values append to the config file values when both are set, so the
	// same step can arrive more than once.
	cfg.ExcludedSteps = lo.Uniq(cfg.ExcludedSteps)

	return &Cleaner{
		cfg:      cfg,
		log:      gklog.With(log, "service", "cleaner"),
		finder:   finder,
		progress: progress,
		metrics:  newMetrics(reg),
	}, nil
}

// Scan runs the whole decision pipeline and returns the plan. It performs no
// destructive work; the only filesystem access is stat calls on candidate
// directories. A scan always completes best-effort: unusable records are
// counted and skipped, never fatal.
func (c *Cleaner) Scan(ctx context.Context, projectID int) (*Plan, error) {
	stats := ScanStats{}

	versions, err := c.finder.FindVersions(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "cleaner fetch versions")
	}
	stats.Fetched = len(versions)
	c.progress(StageFetch, len(versions), len(versions))
	level.Info(c.log).Log("msg", fmt.Sprintf("retrieved %d versions from tracker", len(versions)))

	eligible := c.filterEligible(versions, &stats)
	c.progress(StageFilter, len(eligible), len(versions))
	level.Info(c.log).Log("msg", fmt.Sprintf("filter stats: %d kept, %d excluded by step/path, %d non-sequence",
		stats.Kept, stats.ExcludedByStep, stats.NonSequence))

	groups := groupByShotTask(eligible, &stats)
	c.progress(StageGroup, len(groups), len(groups))

	candidates := make([]Candidate, 0)
	for i, g := range groups {
		level.Debug(c.log).Log("msg", fmt.Sprintf("processing shot %s, task %s", g.Shot, g.Task))
		candidates = append(candidates, applyRules(g, c.cfg.Rules)...)
		c.progress(StageRules, i+1, len(groups))
	}

	paths, manifest := c.resolve(candidates, &stats)
	c.progress(StageResolve, len(paths), len(candidates))

	if stats.MissingPaths > 0 {
		level.Info(c.log).Log("msg", fmt.Sprintf("skipped %d paths that no longer exist on the file system", stats.MissingPaths))
	}

	c.metrics.observeScan(stats)

	return &Plan{
		ProjectID:  projectID,
		Paths:      paths,
		Manifest:   manifest,
		Stats:      stats,
		TotalBytes: totalSize(paths),
	}, nil
}

// totalSize is a best-effort sum of the file sizes under the planned
// directories. Unreadable entries are ignored.
func totalSize(paths []string) int64 {
	var total int64
	for _, p := range paths {
		_ = filepath.Walk(p, func(_ string, info fs.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			total += info.Size()
			return nil
		})
	}
	return total
}
