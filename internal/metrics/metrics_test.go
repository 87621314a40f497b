package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(embeddingCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(embeddingCacheLookups.WithLabelValues("miss"))

	RecordCacheLookup(true)
	RecordCacheLookup(false)
	RecordCacheLookup(false)

	if got := testutil.ToFloat64(embeddingCacheLookups.WithLabelValues("hit")) - hits; got != 1 {
		t.Errorf("hit delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(embeddingCacheLookups.WithLabelValues("miss")) - misses; got != 2 {
		t.Errorf("miss delta = %v, want 2", got)
	}
}

func TestRecordStrategyChunks(t *testing.T) {
	before := testutil.ToFloat64(searchStrategyChunks.WithLabelValues("semantic"))
	RecordStrategyChunks("semantic", 3)
	if got := testutil.ToFloat64(searchStrategyChunks.WithLabelValues("semantic")) - before; got != 3 {
		t.Errorf("semantic delta = %v, want 3", got)
	}
}

func TestCaptureExecutionMetrics(t *testing.T) {
	before := testutil.CollectAndCount(dependencyLatency)
	CaptureExecutionMetrics("metrics_test", 20*time.Millisecond)
	if got := testutil.CollectAndCount(dependencyLatency); got != before+1 {
		t.Errorf("series count = %d, want %d", got, before+1)
	}
}

func TestHttpStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	r := &HttpStatusRecorder{ResponseWriter: rec, Status: http.StatusOK}
	r.WriteHeader(http.StatusTeapot)
	r.Flush()

	if r.Status != http.StatusTeapot {
		t.Errorf("Status = %d, want %d", r.Status, http.StatusTeapot)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("underlying code = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if !rec.Flushed {
		t.Error("Flush() was not forwarded")
	}
}

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/chat", "200"))
	RecordRequest("/api/chat", http.StatusOK)
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/chat", "200")) - before; got != 1 {
		t.Errorf("request delta = %v, want 1", got)
	}
}
