// Package metrics exposes Prometheus counters and gauges for the snapshot lifecycle.
package metrics

import (
	"net/http"

	"github.com/formicag/ACEReportHub/internal/compare"
	"github.com/formicag/ACEReportHub/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the snapshot service observer.
type Collector struct {
	registry *prometheus.Registry

	comparisons prometheus.Counter
	saves       prometheus.Counter
	blocked     *prometheus.CounterVec
	deletes     prometheus.Counter
	backups     *prometheus.CounterVec

	reportable prometheus.Gauge
	stale      prometheus.Gauge
	revenue    prometheus.Gauge
	streak     prometheus.Gauge
	latestID   prometheus.Gauge
}

// New registers the collectors on a fresh registry together with the Go and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		comparisons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ace", Name: "comparisons_total", Help: "Uploads compared against a stored snapshot.",
		}),
		saves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ace", Name: "snapshots_saved_total", Help: "Snapshots stored.",
		}),
		blocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ace", Name: "operations_blocked_total", Help: "Saves and deletes refused, by reason.",
		}, []string{"reason"}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ace", Name: "snapshots_deleted_total", Help: "Snapshots deleted.",
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ace", Name: "backups_total", Help: "Backup attempts by result.",
		}, []string{"result"}),
		reportable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ace", Name: "latest_reportable_opportunities", Help: "Open non-excluded opportunities in the latest snapshot.",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ace", Name: "latest_stale_opportunities", Help: "Stale opportunities in the latest snapshot.",
		}),
		revenue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ace", Name: "latest_estimated_mrr", Help: "Estimated monthly recurring revenue in the latest snapshot.",
		}),
		streak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ace", Name: "consecutive_weeks_no_stale", Help: "Current streak of weeks without stale opportunities.",
		}),
		latestID: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ace", Name: "latest_snapshot_id", Help: "Identifier of the most recently stored snapshot.",
		}),
	}
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		c.comparisons, c.saves, c.blocked, c.deletes, c.backups,
		c.reportable, c.stale, c.revenue, c.streak, c.latestID,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry is exposed for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Compared(res *compare.Result) {
	if res != nil && !res.NoBaseline {
		c.comparisons.Inc()
	}
}

func (c *Collector) Saved(s *models.Snapshot) {
	c.saves.Inc()
	c.reportable.Set(float64(s.Stats.Reportable))
	c.stale.Set(float64(s.Stats.StaleCount))
	c.revenue.Set(s.Stats.TotalRevenue)
	c.streak.Set(float64(s.ConsecutiveWeeksNoStale))
	c.latestID.Set(float64(s.ID))
}

func (c *Collector) Blocked(reason string) { c.blocked.WithLabelValues(reason).Inc() }

func (c *Collector) Deleted(int64) { c.deletes.Inc() }

func (c *Collector) BackedUp(err error) {
	if err != nil {
		c.backups.WithLabelValues("failure").Inc()
		return
	}
	c.backups.WithLabelValues("success").Inc()
}
