package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdg312/meal-planner/internal/blob"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/fdg312/meal-planner/internal/storage/memory"
	"github.com/fdg312/meal-planner/internal/userctx"
	"github.com/google/uuid"
)

// presignStore stands in for S3: objects are kept, URLs are fake
type presignStore struct {
	*blob.MemoryStore
	failPut bool
}

func (p *presignStore) PutObject(ctx context.Context, key string, data []byte, contentType string) (int64, error) {
	if p.failPut {
		return 0, errors.New("bucket unavailable")
	}
	return p.MemoryStore.PutObject(ctx, key, data, contentType)
}

func (p *presignStore) PresignGet(ctx context.Context, key string, ttlSeconds int) (string, error) {
	return "https://s3.example.test/" + key + "?X-Amz-Expires=900", nil
}

func seedPlan(t *testing.T, plans storage.MealPlansStorage, owner string) storage.MealPlan {
	t.Helper()
	up := storage.MealPlanUpsert{
		Title:         "Keto week",
		DietaryType:   "Keto",
		MealTypes:     []string{"Breakfast", "Dinner"},
		Days:          2,
		DailyCalories: 2000,
		TolerancePct:  0.1,
		StartDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	for day := 1; day <= 2; day++ {
		for _, mt := range []string{"Breakfast", "Dinner"} {
			up.Items = append(up.Items, storage.MealPlanItemUpsert{
				DayIndex:          day,
				MealType:          mt,
				CalorieAllocation: 1000,
				Recipe: recipes.Recipe{
					ID:        mt + "-" + string(rune('0'+day)),
					Name:      "Avocado, egg & bacon " + mt,
					Calories:  980,
					Nutrients: recipes.Nutrients{Protein: 40, Fats: 70, Carbs: 12},
				},
			})
		}
	}
	plan, _, err := plans.ReplaceActive(context.Background(), owner, 0, up)
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func setupTestService(t *testing.T, store blob.Store) (*Service, storage.MealPlansStorage) {
	t.Helper()
	mem := memory.New(nil)
	service := NewService(mem.GetReportsStorage(), mem.GetMealPlansStorage(), store, 3, 900)
	return service, mem.GetMealPlansStorage()
}

func createReport(t *testing.T, h *Handlers, ctx context.Context, format string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(CreateReportRequest{Format: format})
	req := httptest.NewRequest("POST", "/v1/reports", bytes.NewReader(body)).WithContext(ctx)
	w := httptest.NewRecorder()
	h.HandleCreate(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var errResp map[string]map[string]string
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	return errResp["error"]["code"]
}

func TestHandleCreate_CSV_LocalDownload(t *testing.T) {
	service, plans := setupTestService(t, blob.NewMemoryStore())
	plan := seedPlan(t, plans, userctx.DefaultUserID)
	handler := NewHandlers(service)

	w := createReport(t, handler, context.Background(), FormatCSV)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}

	var resp ReportDTO
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.PlanID != plan.ID || resp.Status != StatusReady {
		t.Errorf("unexpected report: %+v", resp)
	}
	if !strings.HasSuffix(resp.DownloadURL, "/v1/reports/"+resp.ID.String()+"/download") {
		t.Errorf("unexpected download URL %s", resp.DownloadURL)
	}

	req := httptest.NewRequest("GET", "/v1/reports/"+resp.ID.String()+"/download", nil)
	req.SetPathValue("id", resp.ID.String())
	dw := httptest.NewRecorder()
	handler.HandleDownload(dw, req)

	if dw.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", dw.Code)
	}
	if ct := dw.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %s", ct)
	}

	rows, err := csv.NewReader(dw.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(rows))
	}
	if rows[0][0] != "day" || rows[1][1] != "Breakfast" || rows[1][5] != "980" {
		t.Errorf("unexpected CSV content: %v", rows[:2])
	}
}

func TestHandleCreate_PDF_Success(t *testing.T) {
	service, plans := setupTestService(t, blob.NewMemoryStore())
	seedPlan(t, plans, userctx.DefaultUserID)
	handler := NewHandlers(service)

	w := createReport(t, handler, context.Background(), "PDF")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}

	var resp ReportDTO
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Format != FormatPDF || resp.SizeBytes == 0 {
		t.Errorf("unexpected report: %+v", resp)
	}

	report, err := service.GetReport(context.Background(), resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	data, contentType, err := service.GetReportData(context.Background(), report)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "application/pdf" || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("expected PDF body, got %s %q", contentType, data[:8])
	}
}

func TestHandleCreate_Errors(t *testing.T) {
	service, plans := setupTestService(t, blob.NewMemoryStore())
	handler := NewHandlers(service)

	if w := createReport(t, handler, context.Background(), "xlsx"); w.Code != http.StatusBadRequest || errorCode(t, w) != "invalid_format" {
		t.Errorf("expected invalid_format, got %d", w.Code)
	}
	if w := createReport(t, handler, context.Background(), FormatCSV); w.Code != http.StatusNotFound || errorCode(t, w) != "plan_not_found" {
		t.Errorf("expected plan_not_found, got %d", w.Code)
	}

	seedPlan(t, plans, userctx.DefaultUserID)
	for i := 0; i < 3; i++ {
		if w := createReport(t, handler, context.Background(), FormatCSV); w.Code != http.StatusCreated {
			t.Fatalf("create %d: status %d", i, w.Code)
		}
	}
	if w := createReport(t, handler, context.Background(), FormatCSV); w.Code != http.StatusConflict || errorCode(t, w) != "too_many_reports" {
		t.Errorf("expected too_many_reports, got %d", w.Code)
	}

	req := httptest.NewRequest("POST", "/v1/reports", strings.NewReader("{"))
	w := httptest.NewRecorder()
	handler.HandleCreate(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad JSON, got %d", w.Code)
	}
}

func TestHandleDownload_RedirectsToPresignedURL(t *testing.T) {
	store := &presignStore{MemoryStore: blob.NewMemoryStore()}
	service, plans := setupTestService(t, store)
	seedPlan(t, plans, userctx.DefaultUserID)
	handler := NewHandlers(service)

	w := createReport(t, handler, context.Background(), FormatCSV)
	var resp ReportDTO
	json.NewDecoder(w.Body).Decode(&resp)
	if !strings.HasPrefix(resp.DownloadURL, "https://s3.example.test/exports/default/") {
		t.Errorf("expected presigned URL, got %s", resp.DownloadURL)
	}

	req := httptest.NewRequest("GET", "/v1/reports/"+resp.ID.String()+"/download", nil)
	req.SetPathValue("id", resp.ID.String())
	dw := httptest.NewRecorder()
	handler.HandleDownload(dw, req)

	if dw.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", dw.Code)
	}
	if loc := dw.Header().Get("Location"); loc != resp.DownloadURL {
		t.Errorf("expected redirect to %s, got %s", resp.DownloadURL, loc)
	}
}

func TestHandleCreate_UploadFailureIsRecorded(t *testing.T) {
	store := &presignStore{MemoryStore: blob.NewMemoryStore(), failPut: true}
	service, plans := setupTestService(t, store)
	seedPlan(t, plans, userctx.DefaultUserID)
	handler := NewHandlers(service)

	w := createReport(t, handler, context.Background(), FormatCSV)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var resp ReportDTO
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != StatusFailed || resp.DownloadURL != "" {
		t.Errorf("expected failed report without URL, got %+v", resp)
	}

	req := httptest.NewRequest("GET", "/v1/reports/"+resp.ID.String()+"/download", nil)
	req.SetPathValue("id", resp.ID.String())
	dw := httptest.NewRecorder()
	handler.HandleDownload(dw, req)
	if dw.Code != http.StatusGone {
		t.Errorf("expected 410, got %d", dw.Code)
	}
}

func TestHandleListAndDelete_ScopedToOwner(t *testing.T) {
	store := blob.NewMemoryStore()
	service, plans := setupTestService(t, store)
	handler := NewHandlers(service)

	alice := userctx.WithUserID(context.Background(), "alice")
	bob := userctx.WithUserID(context.Background(), "bob")
	seedPlan(t, plans, "alice")
	seedPlan(t, plans, "bob")

	w := createReport(t, handler, alice, FormatCSV)
	var created ReportDTO
	json.NewDecoder(w.Body).Decode(&created)
	createReport(t, handler, bob, FormatCSV)

	req := httptest.NewRequest("GET", "/v1/reports?limit=10", nil).WithContext(alice)
	lw := httptest.NewRecorder()
	handler.HandleList(lw, req)
	var list ReportsResponse
	json.NewDecoder(lw.Body).Decode(&list)
	if len(list.Reports) != 1 || list.Reports[0].ID != created.ID {
		t.Fatalf("expected only alice's report, got %+v", list.Reports)
	}

	del := func(ctx context.Context, id string) int {
		req := httptest.NewRequest("DELETE", "/v1/reports/"+id, nil).WithContext(ctx)
		req.SetPathValue("id", id)
		w := httptest.NewRecorder()
		handler.HandleDelete(w, req)
		return w.Code
	}

	if code := del(bob, created.ID.String()); code != http.StatusNotFound {
		t.Errorf("bob must not delete alice's report, got %d", code)
	}
	if code := del(alice, "not-a-uuid"); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", code)
	}
	if code := del(alice, created.ID.String()); code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", code)
	}
	if code := del(alice, uuid.New().String()); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}
