package cleaner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	scans            prometheus.Counter
	versionsFetched  prometheus.Counter
	versionsKept     prometheus.Counter
	versionsExcluded *prometheus.CounterVec
	missingPaths     prometheus.Counter
	dirsSelected     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	reg = prometheus.WrapRegistererWithPrefix("framesweep_", reg)

	return &metrics{
		scans: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "scans_total",
			Help: "Total number of completed scans.",
		}),
		versionsFetched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "versions_fetched_total",
			Help: "Total number of versions retrieved from the tracker.",
		}),
		versionsKept: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "versions_kept_total",
			Help: "Total number of versions that passed the eligibility filter.",
		}),
		versionsExcluded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "versions_excluded_total",
			Help: "Total number of versions dropped before retention, by reason.",
		}, []string{"reason"}),
		missingPaths: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "missing_paths_total",
			Help: "Total number of resolved directories that no longer exist.",
		}),
		dirsSelected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dirs_selected_total",
			Help: "Total number of directories selected for removal.",
		}),
	}
}

func (m *metrics) observeScan(stats ScanStats) {
	m.scans.Inc()
	m.versionsFetched.Add(float64(stats.Fetched))
	m.versionsKept.Add(float64(stats.Kept))
	m.versionsExcluded.WithLabelValues("non_sequence").Add(float64(stats.NonSequence))
	m.versionsExcluded.WithLabelValues("step").Add(float64(stats.ExcludedByStep))
	m.versionsExcluded.WithLabelValues("ungrouped").Add(float64(stats.Ungrouped))
	m.missingPaths.Add(float64(stats.MissingPaths))
	m.dirsSelected.Add(float64(stats.Selected))
}
