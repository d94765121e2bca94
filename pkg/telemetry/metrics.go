package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "probe"

// Resource labels used by the acquire/release counters.
const (
	ResourceBrowser = "browser"
	ResourceContext = "context"
	ResourcePage    = "page"
)

// Metrics holds the Prometheus collectors for the engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	acquired     *prometheus.CounterVec
	released     *prometheus.CounterVec
	stepOutcomes *prometheus.CounterVec
	verdicts     *prometheus.CounterVec
	frames       *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

// NewMetrics registers the engine collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		acquired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_acquired_total",
			Help:      "Browser resources acquired, by resource type.",
		}, []string{"resource"}),
		released: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_released_total",
			Help:      "Browser resources released, by resource type.",
		}, []string{"resource"}),
		stepOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_outcomes_total",
			Help:      "Executed steps by kind and outcome.",
		}, []string{"kind", "outcome"}),
		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Test case verdicts by status.",
		}, []string{"status"}),
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_settled_total",
			Help:      "Frames visited by the frame walker, by result.",
		}, []string{"result"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of test case runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}

// ResourceAcquired records one acquired browser, context or page.
func (m *Metrics) ResourceAcquired(resource string) {
	if m == nil {
		return
	}
	m.acquired.WithLabelValues(resource).Inc()
}

// ResourceReleased records one released browser, context or page.
func (m *Metrics) ResourceReleased(resource string) {
	if m == nil {
		return
	}
	m.released.WithLabelValues(resource).Inc()
}

// StepOutcome records the outcome of a single step.
func (m *Metrics) StepOutcome(kind, outcome string) {
	if m == nil {
		return
	}
	m.stepOutcomes.WithLabelValues(kind, outcome).Inc()
}

// FrameSettled records one frame visited by the frame walker.
// result is one of settled, unsettled or skipped.
func (m *Metrics) FrameSettled(result string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(result).Inc()
}

// Verdict records a finished run.
func (m *Metrics) Verdict(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(status).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}
