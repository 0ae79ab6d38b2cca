package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSaved("pill")
	c.RecordSaved("pill")
	c.RecordSaved("note")
	c.RecordStoreFailure("fetch")
	c.RecordReport(OutcomeOK, 150*time.Millisecond)
	c.RecordReport(OutcomeEmpty, 0)
	c.RecordRateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.saved.WithLabelValues("pill")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.saved.WithLabelValues("note")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storeFail.WithLabelValues("fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reports.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reports.WithLabelValues(OutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rateLimited))
	assert.Equal(t, 1, testutil.CollectAndCount(c.renderTime))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordSaved("note")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `pillbot_records_saved_total{kind="note"} 1`))
}

func TestNop_SatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordSaved("pill")
	r.RecordReport(OutcomeRenderError, time.Second)
}
