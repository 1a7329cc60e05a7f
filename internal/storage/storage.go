package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/google/uuid"
)

var (
	// ErrNotFound возвращается, когда запись не найдена
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict возвращается, когда текущая запись изменилась между чтением и записью
	ErrVersionConflict = errors.New("version conflict")
)

// Storage — корневой интерфейс хранилища
type Storage interface {
	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error

	// Close закрывает соединение (для Postgres)
	Close() error
}

// RecipesStorage — интерфейс для работы с каталогом рецептов
type RecipesStorage interface {
	// ListRecipes возвращает все рецепты каталога
	ListRecipes(ctx context.Context) ([]recipes.Recipe, error)

	// GetRecipe возвращает рецепт по ID
	GetRecipe(ctx context.Context, id string) (*recipes.Recipe, error)

	// UpsertRecipes создаёт или обновляет рецепты, возвращает количество записанных
	UpsertRecipes(ctx context.Context, list []recipes.Recipe) (int, error)
}

// MealPlansStorage manages the single current meal plan per user.
type MealPlansStorage interface {
	// GetActive returns the current plan and its items.
	GetActive(ctx context.Context, ownerUserID string) (MealPlan, []MealPlanItem, bool, error)
	// ReplaceActive atomically swaps the current plan. expectedVersion must
	// match the stored plan's version (0 when none exists), otherwise
	// ErrVersionConflict is returned and nothing is written.
	ReplaceActive(ctx context.Context, ownerUserID string, expectedVersion int, upsert MealPlanUpsert) (MealPlan, []MealPlanItem, error)
	// DeleteActive removes the current plan.
	DeleteActive(ctx context.Context, ownerUserID string) error
	// GetToday returns the plan day that falls on date and its items.
	GetToday(ctx context.Context, ownerUserID string, date time.Time) (int, []MealPlanItem, bool, error)
}

type MealPlan struct {
	ID            string
	OwnerUserID   string
	Title         string
	DietaryType   string
	MealTypes     []string
	Days          int
	DailyCalories float64
	TolerancePct  float64
	Version       int
	StartDate     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type MealPlanItem struct {
	ID                string
	OwnerUserID       string
	PlanID            string
	DayIndex          int
	MealType          string
	RecipeID          string
	Title             string
	CalorieAllocation float64
	Kcal              int
	ProteinG          float64
	FatG              float64
	CarbsG            float64
	Recipe            recipes.Recipe
	CreatedAt         time.Time
}

type MealPlanUpsert struct {
	Title         string
	DietaryType   string
	MealTypes     []string
	Days          int
	DailyCalories float64
	TolerancePct  float64
	StartDate     time.Time
	Items         []MealPlanItemUpsert
}

type MealPlanItemUpsert struct {
	DayIndex          int
	MealType          string
	CalorieAllocation float64
	Recipe            recipes.Recipe
}

// NewMealPlanItem fills the denormalized columns of an item from its recipe.
func NewMealPlanItem(id, ownerUserID, planID string, up MealPlanItemUpsert, now time.Time) MealPlanItem {
	return MealPlanItem{
		ID:                id,
		OwnerUserID:       ownerUserID,
		PlanID:            planID,
		DayIndex:          up.DayIndex,
		MealType:          up.MealType,
		RecipeID:          up.Recipe.ID,
		Title:             up.Recipe.Name,
		CalorieAllocation: up.CalorieAllocation,
		Kcal:              up.Recipe.Calories,
		ProteinG:          up.Recipe.Nutrients.Protein,
		FatG:              up.Recipe.Nutrients.Fats,
		CarbsG:            up.Recipe.Nutrients.Carbs,
		Recipe:            up.Recipe,
		CreatedAt:         now,
	}
}

// DayIndexFor maps a calendar date onto a 1-based plan day, cycling through
// the plan from its start date. Dates before the start map backwards.
func DayIndexFor(start, date time.Time, days int) int {
	if days <= 0 {
		return 0
	}
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	diff := int(d.Sub(s).Hours() / 24)
	idx := diff % days
	if idx < 0 {
		idx += days
	}
	return idx + 1
}

// CustomMealsStorage keeps one current custom-meal result per user and
// search mode, plus the history of results the user chose to save.
type CustomMealsStorage interface {
	// GetCurrent returns the latest result for the mode.
	GetCurrent(ctx context.Context, ownerUserID, mode string) (CustomMealResult, bool, error)
	// ReplaceCurrent swaps the current result under the same version rules
	// as MealPlansStorage.ReplaceActive.
	ReplaceCurrent(ctx context.Context, ownerUserID string, expectedVersion int, upsert CustomMealUpsert) (CustomMealResult, error)
	// SaveHistory appends a result to the user's saved meals.
	SaveHistory(ctx context.Context, ownerUserID string, upsert CustomMealUpsert) (SavedCustomMeal, error)
	// ListHistory returns saved meals newest first; an empty mode lists all.
	ListHistory(ctx context.Context, ownerUserID, mode string, limit, offset int) ([]SavedCustomMeal, error)
	// DeleteHistory removes one saved meal. Returns ErrNotFound if absent.
	DeleteHistory(ctx context.Context, ownerUserID string, id uuid.UUID) error
}

type CustomMealResult struct {
	ID          string
	OwnerUserID string
	Mode        string
	Query       json.RawMessage
	Recipe      recipes.Recipe
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CustomMealUpsert struct {
	Mode   string
	Query  json.RawMessage
	Recipe recipes.Recipe
}

type SavedCustomMeal struct {
	ID          uuid.UUID
	OwnerUserID string
	Mode        string
	Query       json.RawMessage
	Recipe      recipes.Recipe
	CreatedAt   time.Time
}

// NutritionTargetsStorage — интерфейс для работы с целями по питанию
type NutritionTargetsStorage interface {
	// Get возвращает цели пользователя или nil, если они не заданы
	Get(ctx context.Context, ownerUserID string) (*NutritionTarget, error)

	// Upsert создаёт или обновляет цели по питанию
	Upsert(ctx context.Context, ownerUserID string, upsert NutritionTargetUpsert) (*NutritionTarget, error)
}

// NutritionTarget represents the daily nutrition goals of a user.
type NutritionTarget struct {
	ID           uuid.UUID
	OwnerUserID  string
	CaloriesKcal int
	ProteinG     int
	FatG         int
	CarbsG       int
	FiberG       int
	Physiology   json.RawMessage // optional inputs the calories were derived from
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NutritionTargetUpsert is used for creating/updating targets.
type NutritionTargetUpsert struct {
	CaloriesKcal int
	ProteinG     int
	FatG         int
	CarbsG       int
	FiberG       int
	Physiology   json.RawMessage
}

// ReportsStorage — интерфейс для работы с экспортами плана
type ReportsStorage interface {
	// CreateReport сохраняет метаданные экспорта
	CreateReport(ctx context.Context, report *ReportMeta) error

	// GetReport возвращает отчёт по ID
	GetReport(ctx context.Context, id uuid.UUID) (*ReportMeta, error)

	// ListReports возвращает отчёты пользователя с пагинацией
	ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]ReportMeta, error)

	// DeleteReport удаляет отчёт
	DeleteReport(ctx context.Context, id uuid.UUID) error
}

// ReportMeta — метаданные экспорта плана
type ReportMeta struct {
	ID          uuid.UUID
	OwnerUserID string
	PlanID      string
	Format      string  // "pdf" or "csv"
	ObjectKey   *string // S3 object key (NULL for memory mode)
	SizeBytes   int64
	Status      string // "ready" or "failed"
	Error       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
