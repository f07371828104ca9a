package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCacheHitRatio(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(false, time.Millisecond)
	metrics.RecordCacheOperation(true, time.Millisecond)

	families, err := metrics.registry.Gather()
	require.NoError(t, err)
	var ratio float64
	for _, family := range families {
		if family.GetName() == "draft_cache_hit_ratio" {
			ratio = family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.InDelta(t, 0.75, ratio, 1e-9)
	assert.Equal(t, 1.0, counterValue(t, metrics, "draft_cache_lookups_total", "miss"))
}

func TestMetricsServiceExposition(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/batch-drafts/:id/commit", http.StatusConflict, 20*time.Millisecond)
	metrics.RecordRejection("TEACHER_CONFLICT")

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `scheduling_rejections_total{kind="TEACHER_CONFLICT"} 1`)
	assert.Contains(t, w.Body.String(), `path="/api/v1/batch-drafts/:id/commit"`)

	var nilMetrics *MetricsService
	nilMetrics.RecordCommit("committed")
	w = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
