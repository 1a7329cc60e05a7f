package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fdg312/meal-planner/internal/auth"
	"github.com/fdg312/meal-planner/internal/blob"
	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/custommeals"
	"github.com/fdg312/meal-planner/internal/mealplans"
	"github.com/fdg312/meal-planner/internal/nutrition"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/regenerate"
	"github.com/fdg312/meal-planner/internal/reports"
	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/fdg312/meal-planner/internal/storage/memory"
	"github.com/fdg312/meal-planner/internal/storage/postgres"
	"github.com/fdg312/meal-planner/internal/telemetry"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.Storage
	catalog        *recipes.CachedCatalog
	authMiddleware *auth.Middleware
}

// New создаёт новый HTTP сервер
func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	// Инициализируем storage
	s.initStorage()

	// Каталог читается из storage и кэшируется
	s.catalog = recipes.NewCachedCatalog(s.loadRecipes, cfg.CatalogCacheTTL, telemetry.CatalogObserver{})

	// Регистрируем маршруты
	s.routes()
	return s
}

// initStorage инициализирует storage (Memory или Postgres)
func (s *Server) initStorage() {
	seed, err := recipes.SeedRecipes()
	if err != nil {
		log.Fatalf("FATAL catalog: embedded recipes are invalid: %v", err)
	}

	if s.config.DatabaseURL == "" {
		log.Println("Используется in-memory storage")
		s.storage = memory.New(seed)
		return
	}

	log.Println("Подключение к PostgreSQL...")
	ctx := context.Background()
	pgStorage, err := postgres.New(ctx, s.config.DatabaseURL)
	if err != nil {
		log.Printf("Ошибка подключения к PostgreSQL: %v", err)
		log.Println("Fallback на in-memory storage")
		s.storage = memory.New(seed)
		return
	}

	log.Println("PostgreSQL подключен успешно")
	s.storage = pgStorage

	// Пустой каталог заполняется встроенными рецептами
	existing, err := pgStorage.GetRecipesStorage().ListRecipes(ctx)
	if err != nil {
		log.Printf("WARNING: failed to read recipe catalog: %v", err)
		return
	}
	if len(existing) == 0 {
		n, err := pgStorage.GetRecipesStorage().UpsertRecipes(ctx, seed)
		if err != nil {
			log.Printf("WARNING: failed to seed recipe catalog: %v", err)
			return
		}
		log.Printf("INFO catalog: seeded %d recipes", n)
	}
}

func (s *Server) loadRecipes(ctx context.Context) ([]recipes.Recipe, error) {
	return s.getRecipesStorage().ListRecipes(ctx)
}

// handle регистрирует маршрут с метриками по шаблону
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, telemetry.Middleware(pattern, h))
}

// routes регистрирует маршруты
func (s *Server) routes() {
	// Health check and metrics (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", telemetry.Handler())

	// Auth API (no auth required)
	authService := auth.NewService(s.config)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)
	authHandler := auth.NewHandlers(authService)
	s.handle("POST /v1/auth/dev", authHandler.HandleDevAuth)

	// Planning engine
	engine, err := regenerate.NewEngine(s.config.Engine)
	if err != nil {
		log.Fatalf("FATAL engine: invalid policy: %v", err)
	}
	controller := regenerate.NewController(s.catalog, engine, s.getMealPlansStorage(), s.getCustomMealsStorage())

	// Recipes API
	recipesHandler := recipes.NewHandler(s.catalog)
	s.handle("GET /v1/recipes", recipesHandler.HandleList)
	s.handle("GET /v1/recipes/{id}", recipesHandler.HandleGet)

	// Nutrition targets API
	nutritionService := nutrition.NewService(s.getNutritionTargetsStorage())
	nutritionHandler := nutrition.NewHandler(nutritionService)
	s.handle("GET /v1/nutrition/targets", nutritionHandler.HandleGetTargets)
	s.handle("PUT /v1/nutrition/targets", nutritionHandler.HandleUpsertTargets)

	// Meal plan API
	mealPlansService := mealplans.NewService(controller, nutritionService)
	mealPlansHandler := mealplans.NewHandler(mealPlansService)
	s.handle("POST /v1/meal/plan/generate", mealPlansHandler.HandleGenerate)
	s.handle("POST /v1/meal/plan/regenerate", mealPlansHandler.HandleRegenerate)
	s.handle("GET /v1/meal/plan", mealPlansHandler.HandleGet)
	s.handle("DELETE /v1/meal/plan", mealPlansHandler.HandleDelete)
	s.handle("GET /v1/meal/today", mealPlansHandler.HandleGetToday)

	// Custom meals API
	customMealsService := custommeals.NewService(controller, s.getCustomMealsStorage())
	customMealsHandler := custommeals.NewHandler(customMealsService)
	s.handle("POST /v1/custom-meals/ingredient", customMealsHandler.HandleIngredientSearch)
	s.handle("POST /v1/custom-meals/ingredient/refresh", customMealsHandler.HandleIngredientRefresh)
	s.handle("POST /v1/custom-meals/nutrient", customMealsHandler.HandleNutrientSearch)
	s.handle("POST /v1/custom-meals/nutrient/refresh", customMealsHandler.HandleNutrientRefresh)
	s.handle("GET /v1/custom-meals/current", customMealsHandler.HandleCurrent)
	s.handle("GET /v1/custom-meals", customMealsHandler.HandleHistory)
	s.handle("DELETE /v1/custom-meals/{id}", customMealsHandler.HandleDelete)

	// Reports (plan exports) API
	reportsBlobStore := s.initBlobStore()
	reportsService := reports.NewService(
		s.getReportsStorage(),
		s.getMealPlansStorage(),
		reportsBlobStore,
		s.config.ExportsMaxPerUser,
		s.config.ExportsPresignTTLSecs,
	)
	reportsHandler := reports.NewHandlers(reportsService)
	s.handle("POST /v1/reports", reportsHandler.HandleCreate)
	s.handle("GET /v1/reports", reportsHandler.HandleList)
	s.handle("GET /v1/reports/{id}/download", reportsHandler.HandleDownload)
	s.handle("DELETE /v1/reports/{id}", reportsHandler.HandleDelete)
}

// getRecipesStorage returns the recipe storage based on storage type
func (s *Server) getRecipesStorage() storage.RecipesStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetRecipesStorage()
	case *postgres.PostgresStorage:
		return st.GetRecipesStorage()
	default:
		panic("unsupported storage type")
	}
}

// getMealPlansStorage returns meal plans storage based on storage type.
func (s *Server) getMealPlansStorage() storage.MealPlansStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetMealPlansStorage()
	case *postgres.PostgresStorage:
		return st.GetMealPlansStorage()
	default:
		panic("unsupported storage type")
	}
}

// getCustomMealsStorage returns custom meals storage based on storage type.
func (s *Server) getCustomMealsStorage() storage.CustomMealsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetCustomMealsStorage()
	case *postgres.PostgresStorage:
		return st.GetCustomMealsStorage()
	default:
		panic("unsupported storage type")
	}
}

func (s *Server) getNutritionTargetsStorage() storage.NutritionTargetsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetNutritionTargetsStorage()
	case *postgres.PostgresStorage:
		return st.GetNutritionTargetsStorage()
	default:
		panic("unsupported storage type")
	}
}

// getReportsStorage returns the reports storage based on storage type
func (s *Server) getReportsStorage() storage.ReportsStorage {
	switch st := s.storage.(type) {
	case *memory.MemoryStorage:
		return st.GetReportsStorage()
	case *postgres.PostgresStorage:
		return st.GetReportsStorage()
	default:
		log.Fatal("unknown storage type")
		return nil
	}
}

// initBlobStore initializes the blob store for plan exports (BLOB_MODE).
func (s *Server) initBlobStore() blob.Store {
	log.Printf("INFO blob: initializing exports store (BLOB_MODE=%s)", s.config.Blob.Mode)
	store, mode, err := blob.NewBlobStore(s.config.Blob, log.Default())
	if err != nil {
		log.Fatalf("FATAL blob: failed to initialize exports store: %v", err)
	}
	log.Printf("INFO blob: exports blob mode: %s", mode)
	return store
}

// ReloadCatalog сбрасывает кэш каталога — следующий запрос перечитает storage
func (s *Server) ReloadCatalog() {
	s.catalog.Invalidate()
	log.Printf("INFO catalog: cache invalidated, reloading on next request")
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.storage.Ping(ctx); err != nil {
		log.Printf("WARNING: healthz storage ping failed: %v", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
	})
}

// Handler собирает цепочку middleware (outermost first): CORS → Rate Limit → Auth → Router
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	if s.authMiddleware != nil && s.config.AuthMode != "none" {
		if s.config.AuthRequired {
			handler = s.authMiddleware.RequireAuth(handler)
		} else {
			handler = s.authMiddleware.OptionalAuth(handler)
		}
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Сервер запущен на http://localhost%s\n", addr)
	log.Printf("Health check: http://localhost%s/healthz\n", addr)
	log.Printf("Meal plan API: http://localhost%s/v1/meal/plan\n", addr)

	return srv.ListenAndServe()
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
