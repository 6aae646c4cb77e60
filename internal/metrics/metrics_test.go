package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.Prediction("Quito", OutcomeAlert)
	r.Prediction("Quito", OutcomeAlert)
	r.Prediction("Ambato", OutcomeBelow)
	r.AlertCreated("Quito")
	r.AlertsPurged(3)
	r.AlertsPurged(0)
	r.TaskDuration("predictions", 250*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.predictions.WithLabelValues("Quito", OutcomeAlert)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.predictions.WithLabelValues("Ambato", OutcomeBelow)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alerts.WithLabelValues("Quito")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.purged))
	assert.Equal(t, 1, testutil.CollectAndCount(r.taskDuration))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Prediction("Quito", OutcomeFailed)
		r.AlertCreated("Quito")
		r.AlertsPurged(1)
		r.TaskDuration("x", time.Second)
	})
	assert.Nil(t, r.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.AlertCreated("Riobamba")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `weather_alerts_created_total{location="Riobamba"} 1`)
}
