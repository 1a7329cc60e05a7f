package telemetry

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/meal-planner/internal/planerr"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "no_match_found", Outcome(fmt.Errorf("wrapped: %w", planerr.NoMatch("none"))))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestObservePlanCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(planAssemblies.WithLabelValues("regenerate", "plan_assembly_failed"))
	relaxedBefore := testutil.ToFloat64(relaxedSlots)

	ObservePlan("regenerate", time.Millisecond, 0, planerr.AssemblyFailed(2, "Lunch", planerr.NoMatch("none")))
	ObservePlan("regenerate", time.Millisecond, 3, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(planAssemblies.WithLabelValues("regenerate", "plan_assembly_failed")))
	assert.Equal(t, relaxedBefore+3, testutil.ToFloat64(relaxedSlots))
}

func TestCatalogObserver(t *testing.T) {
	var obs CatalogObserver
	hits := testutil.ToFloat64(catalogCacheHits)

	obs.CatalogCacheHit()
	obs.CatalogLoaded(384)

	assert.Equal(t, hits+1, testutil.ToFloat64(catalogCacheHits))
	assert.Equal(t, 384.0, testutil.ToFloat64(catalogSize))
}

func TestMiddlewareRecordsRouteAndStatus(t *testing.T) {
	h := Middleware("GET /v1/recipes/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /v1/recipes/{id}", "404"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/recipes/keto-b01", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "GET /v1/recipes/{id}", "404")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RateLimitRejected()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mealplanner_rate_limit_rejects_total"))
}
