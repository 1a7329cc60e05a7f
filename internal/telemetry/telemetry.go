// Package telemetry exposes Prometheus metrics for the planning engine and
// the HTTP surface.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fdg312/meal-planner/internal/planerr"
)

var (
	// Plan assembly metrics
	planAssemblies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealplanner_plan_assemblies_total",
			Help: "Total number of plan assemblies by selection mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	planAssemblyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealplanner_plan_assembly_duration_seconds",
			Help:    "Duration of plan assembly in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"mode"},
	)
	relaxedSlots = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mealplanner_relaxed_slots_total",
			Help: "Total number of slots filled under per-day exclusion",
		},
	)

	// Custom meal metrics
	customMealSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealplanner_custom_meal_searches_total",
			Help: "Total number of custom meal searches by query mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	matchCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealplanner_match_candidates",
			Help:    "Number of candidates returned by the matcher",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"mode"},
	)
	persistenceConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealplanner_persistence_conflicts_total",
			Help: "Total number of lost read-modify-write races",
		},
		[]string{"resource"},
	)

	// Catalog cache metrics
	catalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mealplanner_catalog_cache_hits_total",
			Help: "Total number of catalog snapshot cache hits",
		},
	)
	catalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mealplanner_catalog_cache_misses_total",
			Help: "Total number of catalog snapshot loads",
		},
	)
	catalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mealplanner_catalog_recipes",
			Help: "Number of recipes in the current catalog snapshot",
		},
	)
)

// Outcome labels an engine result: "ok", the planerr code, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := planerr.CodeOf(err); ok {
		return string(code)
	}
	return "error"
}

// ObservePlan records one plan assembly.
func ObservePlan(mode string, elapsed time.Duration, relaxed int, err error) {
	planAssemblies.WithLabelValues(mode, Outcome(err)).Inc()
	planAssemblyDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if relaxed > 0 {
		relaxedSlots.Add(float64(relaxed))
	}
}

// ObserveCustomMeal records one single-recipe search.
func ObserveCustomMeal(mode string, candidates int, err error) {
	customMealSearches.WithLabelValues(mode, Outcome(err)).Inc()
	matchCandidates.WithLabelValues(mode).Observe(float64(candidates))
}

// ObserveConflict records a lost optimistic write on resource.
func ObserveConflict(resource string) {
	persistenceConflicts.WithLabelValues(resource).Inc()
}

// CatalogObserver feeds catalog cache events into the cache metrics.
type CatalogObserver struct{}

func (CatalogObserver) CatalogCacheHit()  { catalogCacheHits.Inc() }
func (CatalogObserver) CatalogCacheMiss() { catalogCacheMisses.Inc() }
func (CatalogObserver) CatalogLoaded(n int) {
	catalogSize.Set(float64(n))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
