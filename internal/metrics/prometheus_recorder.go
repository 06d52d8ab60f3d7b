package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitepipe"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	runDuration      prom.Histogram
	runOutcomes      *prom.CounterVec
	pipelineDuration *prom.HistogramVec
	pipelineResults  *prom.CounterVec
	moduleDuration   *prom.HistogramVec
	documentsOutput  *prom.CounterVec
	cacheEvents      *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them with reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total engine run duration",
			Buckets:   prom.DefBuckets,
		}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Engine runs by final outcome",
		}, []string{"outcome"}),
		pipelineDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of individual pipeline executions",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline"}),
		pipelineResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_results_total",
			Help:      "Pipeline results by outcome",
		}, []string{"pipeline", "result"}),
		moduleDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "module_duration_seconds",
			Help:      "Duration of top-level module executions",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline", "module"}),
		documentsOutput: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_output_total",
			Help:      "Documents output by pipelines",
		}, []string{"pipeline"}),
		cacheEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Execution cache hits, misses and evictions",
		}, []string{"event"}),
	}
	reg.MustRegister(pr.runDuration, pr.runOutcomes, pr.pipelineDuration, pr.pipelineResults,
		pr.moduleDuration, pr.documentsOutput, pr.cacheEvents)
	return pr
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	p.runOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObservePipelineDuration(pipeline string, d time.Duration) {
	p.pipelineDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPipelineResult(pipeline string, result ResultLabel) {
	p.pipelineResults.WithLabelValues(pipeline, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveModuleDuration(pipeline, module string, d time.Duration) {
	p.moduleDuration.WithLabelValues(pipeline, module).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddDocumentsOutput(pipeline string, n int) {
	p.documentsOutput.WithLabelValues(pipeline).Add(float64(n))
}

func (p *PrometheusRecorder) AddCacheStats(hits, misses, evictions int64) {
	p.cacheEvents.WithLabelValues("hit").Add(float64(hits))
	p.cacheEvents.WithLabelValues("miss").Add(float64(misses))
	p.cacheEvents.WithLabelValues("eviction").Add(float64(evictions))
}
