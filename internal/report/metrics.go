package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/backmassage/symguard/internal/pipeline"
)

const namespace = "symguard"

// runMetrics holds the gauges exported for one run. They live on a private
// registry so repeated runs (watch mode) never collide.
type runMetrics struct {
	reg *prometheus.Registry

	symlinks      prometheus.Gauge
	byStatus      *prometheus.GaugeVec
	problems      prometheus.Gauge
	deleted       prometheus.Gauge
	deletedBytes  prometheus.Gauge
	notifications *prometheus.GaugeVec
	duration      prometheus.Gauge
	lastRun       prometheus.Gauge
	interrupted   prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &runMetrics{
		reg: reg,
		symlinks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "symlinks",
			Help: "Symlinks collected by the last run.",
		}),
		byStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "symlinks_by_status",
			Help: "Symlinks per final status in the last run.",
		}, []string{"status"}),
		problems: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "problems",
			Help: "Problem symlinks found by the last run.",
		}),
		deleted: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "deleted",
			Help: "Entries deleted by the last run.",
		}),
		deletedBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "deleted_bytes",
			Help: "Target bytes of the entries deleted by the last run.",
		}),
		notifications: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "notifications",
			Help: "Library commands sent by the last run.",
		}, []string{"result"}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		interrupted: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_interrupted",
			Help: "1 when the last run was interrupted.",
		}),
	}
}

func (m *runMetrics) observe(res *pipeline.Result) {
	s := res.Stats
	m.symlinks.Set(float64(s.Collected))
	for st, n := range s.ByStatus {
		m.byStatus.WithLabelValues(string(st)).Set(float64(n))
	}
	m.problems.Set(float64(len(res.Problems)))
	m.deleted.Set(float64(s.Deleted))
	m.deletedBytes.Set(float64(s.DeletedBytes))
	var sent, failed int
	if res.Notification != nil {
		sent, failed = res.Notification.Sent, res.Notification.Failed
	}
	m.notifications.WithLabelValues("sent").Set(float64(sent))
	m.notifications.WithLabelValues("failed").Set(float64(failed))
	m.duration.Set(res.Duration().Seconds())
	m.lastRun.Set(float64(res.Finished.Unix()))
	if res.Interrupted {
		m.interrupted.Set(1)
	} else {
		m.interrupted.Set(0)
	}
}

// WriteMetrics writes the run gauges to path in the node_exporter textfile
// format. The file is replaced atomically.
func WriteMetrics(path string, res *pipeline.Result) error {
	m := newRunMetrics()
	m.observe(res)
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
