// Package metrics exports [taskq.Queue] activity as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomasbasham/taskq"
)

// Ensure Collector implements [taskq.MetricsHook].
var _ taskq.MetricsHook = (*Collector)(nil)

// Collector implements [taskq.MetricsHook] by recording counters, a depth
// gauge and a wait-time histogram, each labelled by priority.
type Collector struct {
	added    *prometheus.CounterVec
	removed  *prometheus.CounterVec
	rejected prometheus.Counter
	depth    *prometheus.GaugeVec
	wait     *prometheus.HistogramVec
}

// NewCollector registers the queue metrics with reg under the given
// namespace. If any metric fails to register, the ones registered before it
// are removed again so reg is left as it was.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		added: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "tasks_added_total",
			Help:      "Total number of tasks added to the queue",
		}, []string{"priority"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "tasks_removed_total",
			Help:      "Total number of tasks removed from the queue",
		}, []string{"priority"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "tasks_rejected_total",
			Help:      "Total number of tasks rejected for an invalid priority",
		}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of tasks currently queued",
		}, []string{"priority"}),
		wait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "wait_seconds",
			Help:      "Time tasks spent queued before removal",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"priority"}),
	}

	collectors := []prometheus.Collector{c.added, c.removed, c.rejected, c.depth, c.wait}
	for i, col := range collectors {
		if err := reg.Register(col); err != nil {
			for _, registered := range collectors[:i] {
				reg.Unregister(registered)
			}
			return nil, fmt.Errorf("failed to register queue metrics: %w", err)
		}
	}

	// Expose every tier from the start so dashboards see zeroes.
	for _, p := range taskq.Priorities.All() {
		c.added.WithLabelValues(p.String())
		c.removed.WithLabelValues(p.String())
		c.depth.WithLabelValues(p.String())
	}
	return c, nil
}

func (c *Collector) OnAdd(info taskq.TaskInfo) {
	label := info.Priority.String()
	c.added.WithLabelValues(label).Inc()
	c.depth.WithLabelValues(label).Inc()
}

func (c *Collector) OnRemove(info taskq.TaskInfo) {
	label := info.Priority.String()
	c.removed.WithLabelValues(label).Inc()
	c.depth.WithLabelValues(label).Dec()
	c.wait.WithLabelValues(label).Observe(info.Waited.Seconds())
}

func (c *Collector) OnReject(taskq.Priority) {
	c.rejected.Inc()
}
