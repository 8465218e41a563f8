package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	RecordLogin(OutcomeSuccess)
	RecordRefresh(OutcomeSuccess)
	RecordResetRequest(OutcomeSuccess)
	RecordNotification("user.registered", OutcomeSuccess)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	registered := make(map[string]bool)
	for _, family := range families {
		registered[family.GetName()] = true
	}
	for _, name := range []string{
		"jobfinder_auth_logins_total",
		"jobfinder_auth_refreshes_total",
		"jobfinder_auth_password_reset_requests_total",
		"jobfinder_notifications_total",
	} {
		assert.True(t, registered[name], "metric %q should be registered", name)
	}
}

func TestRecordLoginIncrements(t *testing.T) {
	before := testutil.ToFloat64(logins.WithLabelValues(OutcomeFailure))
	RecordLogin(OutcomeFailure)
	assert.Equal(t, before+1, testutil.ToFloat64(logins.WithLabelValues(OutcomeFailure)))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Middleware)
	router.Get("/job/get/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("/job/get/{id}", http.MethodGet, "404"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/job/get/abc", nil))

	after := testutil.ToFloat64(httpRequests.WithLabelValues("/job/get/{id}", http.MethodGet, "404"))
	assert.Equal(t, before+1, after)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpDuration), 1)
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordLogin(OutcomeSuccess)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "jobfinder_auth_logins_total"))
}
