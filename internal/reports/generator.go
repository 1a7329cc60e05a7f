package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/jung-kurt/gofpdf"
)

// Generator renders a stored meal plan as PDF or CSV
type Generator struct{}

// NewGenerator creates a new plan export generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the plan in the requested format
func (g *Generator) Generate(format string, plan storage.MealPlan, items []storage.MealPlanItem) ([]byte, error) {
	switch format {
	case FormatPDF:
		return g.generatePDF(plan, items)
	case FormatCSV:
		return g.generateCSV(plan, items)
	default:
		return nil, ErrInvalidFormat
	}
}

var csvHeader = []string{
	"day", "meal_type", "recipe_id", "recipe",
	"allocation_kcal", "kcal", "protein_g", "fat_g", "carbs_g",
}

func (g *Generator) generateCSV(plan storage.MealPlan, items []storage.MealPlanItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, it := range items {
		row := []string{
			strconv.Itoa(it.DayIndex),
			it.MealType,
			it.RecipeID,
			it.Title,
			strconv.FormatFloat(it.CalorieAllocation, 'f', 0, 64),
			strconv.Itoa(it.Kcal),
			formatGrams(it.ProteinG),
			formatGrams(it.FatG),
			formatGrams(it.CarbsG),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) generatePDF(plan storage.MealPlan, items []storage.MealPlanItem) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts only cover latin-1, so titles go through the translator
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(planTitle(plan)))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("%s, %d day(s), %.0f kcal per day (tolerance %.0f%%)",
		plan.DietaryType, plan.Days, plan.DailyCalories, plan.TolerancePct*100))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Starts "+plan.StartDate.Format("2006-01-02"))
	pdf.Ln(10)

	byDay := make(map[int][]storage.MealPlanItem)
	for _, it := range items {
		byDay[it.DayIndex] = append(byDay[it.DayIndex], it)
	}

	for day := 1; day <= plan.Days; day++ {
		pdf.SetFont("Arial", "B", 13)
		pdf.Cell(0, 8, fmt.Sprintf("Day %d", day))
		pdf.Ln(8)

		g.drawDayTable(pdf, tr, byDay[day])
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func (g *Generator) drawDayTable(pdf *gofpdf.Fpdf, tr func(string) string, items []storage.MealPlanItem) {
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(25, 6, "Meal", "1", 0, "C", false, 0, "")
	pdf.CellFormat(85, 6, "Recipe", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "kcal", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Protein", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Fat", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	total := 0
	for _, it := range items {
		pdf.CellFormat(25, 6, it.MealType, "1", 0, "L", false, 0, "")
		pdf.CellFormat(85, 6, tr(truncate(it.Title, 48)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(it.Kcal), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, formatGrams(it.ProteinG), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, formatGrams(it.FatG), "1", 1, "R", false, 0, "")
		total += it.Kcal
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(110, 6, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 6, strconv.Itoa(total), "1", 1, "R", false, 0, "")
}

func planTitle(plan storage.MealPlan) string {
	if strings.TrimSpace(plan.Title) != "" {
		return plan.Title
	}
	return "Meal plan"
}

func formatGrams(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
