package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncRunOutcome("success")
	pr.ObservePipelineDuration("posts", 150*time.Millisecond)
	pr.IncPipelineResult("posts", ResultSuccess)
	pr.IncPipelineResult("posts", ResultSuccess)
	pr.ObserveModuleDuration("posts", "markdown", 10*time.Millisecond)
	pr.AddDocumentsOutput("posts", 3)
	pr.AddCacheStats(4, 1, 2)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.pipelineResults.WithLabelValues("posts", "success")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.documentsOutput.WithLabelValues("posts")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(pr.cacheEvents.WithLabelValues("hit")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(pr.cacheEvents.WithLabelValues("eviction")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.runOutcomes.WithLabelValues("success")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestHTTPHandlerServesNamespace(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncRunOutcome("failed")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `sitepipe_run_outcomes_total{outcome="failed"} 1`))
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncRunOutcome("success")
	r.AddCacheStats(1, 2, 3)
}
