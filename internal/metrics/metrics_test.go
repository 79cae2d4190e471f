package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdersTotalCountsByLabel(t *testing.T) {
	before := testutil.ToFloat64(OrdersTotal.WithLabelValues("btcusdt", "BUY", "dry_run"))

	OrdersTotal.WithLabelValues("btcusdt", "BUY", "dry_run").Inc()
	OrdersTotal.WithLabelValues("btcusdt", "SELL", "dry_run").Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(OrdersTotal.WithLabelValues("btcusdt", "BUY", "dry_run")))
}

func TestHandlerExposesCounters(t *testing.T) {
	CyclesTotal.Inc()

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "decision_cycles_total")
}
