package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/recipes"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              8080,
		AuthMode:          "dev",
		AuthRequired:      true,
		JWTSecret:         "test-secret-key-for-testing-only",
		JWTIssuer:         "meal-planner-test",
		JWTTTLMinutes:     60,
		ExportsMaxPerUser: 5,
		Engine:            config.DefaultEnginePolicy(),
	}
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func devToken(t *testing.T, h http.Handler, userID string) string {
	t.Helper()

	w := doJSON(t, h, http.MethodPost, "/v1/auth/dev", "", map[string]string{"user_id": userID})
	if w.Code != http.StatusOK {
		t.Fatalf("dev auth: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	srv := New(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status=ok, got %s", resp["status"])
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := New(testConfig())

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	h := New(testConfig()).Handler()

	w := doJSON(t, h, http.MethodGet, "/v1/meal/plan", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/v1/recipes?dietary_type=Vegan", devToken(t, h, "alice"), nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMealPlanFlow(t *testing.T) {
	h := New(testConfig()).Handler()
	alice := devToken(t, h, "alice")
	bob := devToken(t, h, "bob")

	generate := map[string]any{
		"dietary_type":   "Keto",
		"meal_type":      []string{"Breakfast", "Lunch", "Dinner", "Snack"},
		"no_of_days":     3,
		"daily_calories": 2200,
	}
	w := doJSON(t, h, http.MethodPost, "/v1/meal/plan/generate", alice, generate)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var first struct {
		MealPlan struct {
			Version  int `json:"version"`
			DayPlans []struct {
				Meals []struct {
					Recipe struct {
						ID string `json:"id"`
					} `json:"recipe"`
				} `json:"meals"`
			} `json:"day_plans"`
		} `json:"meal_plan"`
	}
	json.NewDecoder(w.Body).Decode(&first)
	if first.MealPlan.Version != 1 || len(first.MealPlan.DayPlans) != 3 {
		t.Fatalf("unexpected plan: %+v", first.MealPlan)
	}

	// bob has no plan of his own
	w = doJSON(t, h, http.MethodPost, "/v1/meal/plan/regenerate", bob, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("regenerate for other user: expected 404, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/v1/meal/plan/regenerate", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("regenerate: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/v1/meal/today?date=2026-03-02", alice, nil)
	if w.Code != http.StatusOK {
		t.Errorf("today: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/v1/reports", alice, map[string]string{"format": "csv"})
	if w.Code != http.StatusCreated {
		t.Fatalf("export: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var report struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	json.NewDecoder(w.Body).Decode(&report)
	if report.Status != "ready" {
		t.Errorf("expected ready export, got %q", report.Status)
	}

	w = doJSON(t, h, http.MethodGet, "/v1/reports/"+report.ID+"/download", alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "day,meal_type,recipe_id") {
		t.Errorf("unexpected csv: %.80s", w.Body.String())
	}

	w = doJSON(t, h, http.MethodDelete, "/v1/meal/plan", alice, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", w.Code)
	}
}

func TestCustomMealFlow(t *testing.T) {
	h := New(testConfig()).Handler()
	token := devToken(t, h, "carol")

	w := doJSON(t, h, http.MethodPost, "/v1/custom-meals/ingredient", token, map[string]any{
		"ingredient":   "chicken",
		"restrictions": []string{"gluten-free"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/v1/custom-meals/ingredient/refresh", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/v1/custom-meals/nutrient/refresh", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("nutrient refresh without search: expected 400, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(testConfig()).Handler()

	// drive one instrumented request so the counter has a sample
	doJSON(t, h, http.MethodGet, "/v1/recipes", devToken(t, h, "dave"), nil)

	w := doJSON(t, h, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "mealplanner_http_requests_total") {
		t.Error("expected http request counter in metrics output")
	}
}

func TestReloadCatalogPicksUpImportedRecipes(t *testing.T) {
	srv := New(testConfig())
	h := srv.Handler()
	token := devToken(t, h, "erin")

	total := func() int {
		t.Helper()
		w := doJSON(t, h, http.MethodGet, "/v1/recipes", token, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("list recipes: expected 200, got %d", w.Code)
		}
		var resp recipes.ListRecipesResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		return resp.Total
	}

	before := total()
	added := recipes.Recipe{
		ID:          "zz-imported-salad",
		Name:        "Imported Salad",
		DietaryType: recipes.Vegan,
		Calories:    250,
		Ingredients: []recipes.Ingredient{{Name: "lettuce"}},
		Servings:    1,
	}
	if _, err := srv.getRecipesStorage().UpsertRecipes(context.Background(), []recipes.Recipe{added}); err != nil {
		t.Fatal(err)
	}

	if got := total(); got != before {
		t.Errorf("expected cached total %d before reload, got %d", before, got)
	}

	srv.ReloadCatalog()
	if got := total(); got != before+1 {
		t.Errorf("expected %d recipes after reload, got %d", before+1, got)
	}
}
