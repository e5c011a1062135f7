package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.RecordCommandUsed("create_plan")
	m.RecordCommandUsed("create_plan")
	m.RecordPress("stale")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commandsUsed.WithLabelValues("create_plan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pressesHandled.WithLabelValues("stale")))

	// экземпляры не делят реестр
	other := New()
	assert.Equal(t, 0.0, testutil.ToFloat64(other.commandsUsed.WithLabelValues("create_plan")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordFlowStep("delete_plan")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `planbot_flow_steps_total{flow="delete_plan"} 1`))
}
