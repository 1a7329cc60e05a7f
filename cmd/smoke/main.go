package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"
)

var (
	apiBase    string
	token      string
	client     = &http.Client{Timeout: 30 * time.Second}
	testDate   string
	createdIDs = make(map[string]string) // track created resources for cleanup
	planRecipe = make(map[string]bool)   // recipe ids of the first generated plan
)

func main() {
	fmt.Println("=== Meal Planner E2E Smoke Test ===")
	fmt.Println()

	// Load config from env
	apiBase = getEnv("API_BASE_URL", defaultAPIBase)
	token = getEnv("SMOKE_TOKEN", "")

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Token: %s\n", maskString(token))
	fmt.Println()

	// Test date (today)
	testDate = time.Now().Format("2006-01-02")

	// Run smoke tests
	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Dev Token", testDevToken},
		{"List Recipes", testListRecipes},
		{"Generate Plan", testGeneratePlan},
		{"Regenerate Plan", testRegeneratePlan},
		{"Get Today", testGetToday},
		{"Ingredient Search", testIngredientSearch},
		{"Ingredient Refresh", testIngredientRefresh},
		{"Nutrient Search", testNutrientSearch},
		{"Create Report (CSV)", testCreateReportCSV},
		{"Download Report", testDownloadReport},
		{"Delete Report", testDeleteReport},
		{"Delete Plan", testDeletePlan},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	_, err := call("GET", "/healthz", nil, http.StatusOK, nil)
	return err
}

func testDevToken() error {
	// If token already set via env, skip
	if token != "" {
		return nil
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	status, err := call("POST", "/v1/auth/dev", map[string]string{"user_id": "smoke"}, 0, &result)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		token = result.AccessToken
	case http.StatusNotFound:
		// AUTH_MODE=none, requests run as the default user
	default:
		return fmt.Errorf("unexpected status=%d", status)
	}
	return nil
}

func testListRecipes() error {
	var result struct {
		Total int `json:"total"`
	}
	if _, err := call("GET", "/v1/recipes?dietary_type=Keto", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Total == 0 {
		return fmt.Errorf("no Keto recipes in catalog")
	}
	return nil
}

type planResponse struct {
	MealPlan struct {
		ID       string `json:"id"`
		Version  int    `json:"version"`
		DayPlans []struct {
			Meals []struct {
				Recipe struct {
					ID string `json:"id"`
				} `json:"recipe"`
			} `json:"meals"`
		} `json:"day_plans"`
	} `json:"meal_plan"`
}

func (p planResponse) recipeIDs() []string {
	var ids []string
	for _, d := range p.MealPlan.DayPlans {
		for _, m := range d.Meals {
			ids = append(ids, m.Recipe.ID)
		}
	}
	return ids
}

func testGeneratePlan() error {
	payload := map[string]interface{}{
		"dietary_type":   "Keto",
		"meal_type":      []string{"Breakfast", "Lunch", "Dinner", "Snack"},
		"no_of_days":     3,
		"daily_calories": 2200,
	}

	var result planResponse
	if _, err := call("POST", "/v1/meal/plan/generate", payload, http.StatusOK, &result); err != nil {
		return err
	}

	ids := result.recipeIDs()
	if len(ids) != 12 {
		return fmt.Errorf("expected 12 meals, got %d", len(ids))
	}
	for _, id := range ids {
		planRecipe[id] = true
	}
	createdIDs["plan"] = result.MealPlan.ID
	return nil
}

func testRegeneratePlan() error {
	var result planResponse
	if _, err := call("POST", "/v1/meal/plan/regenerate", nil, http.StatusOK, &result); err != nil {
		return err
	}

	for _, id := range result.recipeIDs() {
		if planRecipe[id] {
			return fmt.Errorf("recipe %s repeated from the previous plan", id)
		}
	}
	return nil
}

func testGetToday() error {
	var result struct {
		DayIndex int `json:"day_index"`
	}
	if _, err := call("GET", "/v1/meal/today?date="+testDate, nil, http.StatusOK, &result); err != nil {
		return err
	}
	if result.DayIndex < 1 || result.DayIndex > 3 {
		return fmt.Errorf("day_index out of range: %d", result.DayIndex)
	}
	return nil
}

func testIngredientSearch() error {
	payload := map[string]interface{}{
		"ingredient":   "chicken",
		"restrictions": []string{"gluten-free"},
	}
	var result struct {
		Recipe struct {
			ID string `json:"id"`
		} `json:"recipe"`
	}
	if _, err := call("POST", "/v1/custom-meals/ingredient", payload, http.StatusOK, &result); err != nil {
		return err
	}
	createdIDs["ingredient_recipe"] = result.Recipe.ID
	return nil
}

func testIngredientRefresh() error {
	var result struct {
		Recipe struct {
			ID string `json:"id"`
		} `json:"recipe"`
	}
	if _, err := call("POST", "/v1/custom-meals/ingredient/refresh", nil, http.StatusOK, &result); err != nil {
		return err
	}
	if result.Recipe.ID == createdIDs["ingredient_recipe"] {
		return fmt.Errorf("refresh returned the same recipe %s", result.Recipe.ID)
	}
	return nil
}

func testNutrientSearch() error {
	payload := map[string]interface{}{
		"calories": 500,
		"nutrient": map[string]interface{}{"type": "protein", "value": 30},
	}
	_, err := call("POST", "/v1/custom-meals/nutrient", payload, http.StatusOK, nil)
	return err
}

func testCreateReportCSV() error {
	var result struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if _, err := call("POST", "/v1/reports", map[string]string{"format": "csv"}, http.StatusCreated, &result); err != nil {
		return err
	}
	if result.Status != "ready" {
		return fmt.Errorf("report status=%s", result.Status)
	}
	createdIDs["report"] = result.ID
	return nil
}

func testDownloadReport() error {
	reportID := createdIDs["report"]
	if reportID == "" {
		return fmt.Errorf("no report ID to download")
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s/v1/reports/%s/download", apiBase, reportID), nil)
	if err != nil {
		return err
	}
	addAuth(req)

	// Presigned mode answers with a redirect, follow it
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("downloaded report is empty")
	}
	return nil
}

func testDeleteReport() error {
	reportID := createdIDs["report"]
	if reportID == "" {
		return fmt.Errorf("no report ID to delete")
	}
	_, err := call("DELETE", "/v1/reports/"+reportID, nil, http.StatusNoContent, nil)
	return err
}

func testDeletePlan() error {
	_, err := call("DELETE", "/v1/meal/plan", nil, http.StatusNoContent, nil)
	return err
}

// Helper functions

// call sends a JSON request. want == 0 accepts any status.
func call(method, path string, payload interface{}, want int, out interface{}) (int, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if want != 0 && resp.StatusCode != want {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode failed: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func addAuth(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
