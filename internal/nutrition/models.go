package nutrition

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Daily calorie bounds, shared with plan generation.
const (
	MinCaloriesKcal = 800
	MaxCaloriesKcal = 6000
)

// Activity levels and their multipliers on BMR.
var activityFactors = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// Goal adjustments in kcal per day.
var goalAdjustments = map[string]float64{
	"lose":     -500,
	"maintain": 0,
	"gain":     300,
}

// Physiology is the profile step the daily calorie target is derived from.
type Physiology struct {
	Sex           string  `json:"sex"` // "male" or "female"
	Age           int     `json:"age"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
	ActivityLevel string  `json:"activity_level"`
	Goal          string  `json:"goal"`
}

// Validate checks ranges and lowercases labels in place.
func (p *Physiology) Validate() error {
	p.Sex = strings.ToLower(strings.TrimSpace(p.Sex))
	p.ActivityLevel = strings.ToLower(strings.TrimSpace(p.ActivityLevel))
	p.Goal = strings.ToLower(strings.TrimSpace(p.Goal))
	if p.ActivityLevel == "" {
		p.ActivityLevel = "sedentary"
	}
	if p.Goal == "" {
		p.Goal = "maintain"
	}

	if p.Sex != "male" && p.Sex != "female" {
		return fmt.Errorf("sex must be 'male' or 'female'")
	}
	if p.Age < 14 || p.Age > 100 {
		return fmt.Errorf("age must be between 14 and 100")
	}
	if p.HeightCm < 100 || p.HeightCm > 250 {
		return fmt.Errorf("height_cm must be between 100 and 250")
	}
	if p.WeightKg < 30 || p.WeightKg > 300 {
		return fmt.Errorf("weight_kg must be between 30 and 300")
	}
	if _, ok := activityFactors[p.ActivityLevel]; !ok {
		return fmt.Errorf("activity_level must be one of sedentary, light, moderate, active, very_active")
	}
	if _, ok := goalAdjustments[p.Goal]; !ok {
		return fmt.Errorf("goal must be one of lose, maintain, gain")
	}
	return nil
}

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal.
func (p Physiology) BMR() float64 {
	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	if p.Sex == "male" {
		return bmr + 5
	}
	return bmr - 161
}

// DailyCalories is BMR times the activity factor plus the goal adjustment,
// clamped to the plan bounds.
func (p Physiology) DailyCalories() int {
	kcal := p.BMR()*activityFactors[p.ActivityLevel] + goalAdjustments[p.Goal]
	kcal = math.Max(MinCaloriesKcal, math.Min(MaxCaloriesKcal, kcal))
	return int(math.Round(kcal))
}

// TargetsDTO represents the user's daily nutrition targets.
type TargetsDTO struct {
	CaloriesKcal int         `json:"calories_kcal"`
	ProteinG     int         `json:"protein_g"`
	FatG         int         `json:"fat_g"`
	CarbsG       int         `json:"carbs_g"`
	FiberG       int         `json:"fiber_g"`
	Physiology   *Physiology `json:"physiology,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// GetTargetsResponse contains targets and a flag indicating if they are defaults.
type GetTargetsResponse struct {
	Targets   TargetsDTO `json:"targets"`
	IsDefault bool       `json:"is_default"`
}

// UpsertTargetsRequest is the request body for PUT /v1/nutrition/targets.
// When physiology is given, zero fields are derived from it.
type UpsertTargetsRequest struct {
	Physiology   *Physiology `json:"physiology,omitempty"`
	CaloriesKcal int         `json:"calories_kcal"`
	ProteinG     int         `json:"protein_g"`
	FatG         int         `json:"fat_g"`
	CarbsG       int         `json:"carbs_g"`
	FiberG       int         `json:"fiber_g"`
}

// Resolve fills derived fields and validates the result.
func (r *UpsertTargetsRequest) Resolve() error {
	if r.Physiology != nil {
		if err := r.Physiology.Validate(); err != nil {
			return err
		}
		if r.CaloriesKcal == 0 {
			r.CaloriesKcal = r.Physiology.DailyCalories()
		}
	}
	if r.CaloriesKcal < MinCaloriesKcal || r.CaloriesKcal > MaxCaloriesKcal {
		return fmt.Errorf("calories_kcal must be between %d and %d", MinCaloriesKcal, MaxCaloriesKcal)
	}

	split := MacroSplit(r.CaloriesKcal)
	if r.ProteinG == 0 {
		r.ProteinG = split.ProteinG
	}
	if r.FatG == 0 {
		r.FatG = split.FatG
	}
	if r.CarbsG == 0 {
		r.CarbsG = split.CarbsG
	}
	if r.FiberG == 0 {
		r.FiberG = split.FiberG
	}

	if r.ProteinG < 0 || r.ProteinG > 400 {
		return fmt.Errorf("protein_g must be between 0 and 400")
	}
	if r.FatG < 0 || r.FatG > 400 {
		return fmt.Errorf("fat_g must be between 0 and 400")
	}
	if r.CarbsG < 0 || r.CarbsG > 800 {
		return fmt.Errorf("carbs_g must be between 0 and 800")
	}
	if r.FiberG < 0 || r.FiberG > 100 {
		return fmt.Errorf("fiber_g must be between 0 and 100")
	}
	return nil
}

// MacroSplit divides calories 25/30/45 across protein, fat and carbs, with
// 14 g of fiber per 1000 kcal.
func MacroSplit(kcal int) TargetsDTO {
	k := float64(kcal)
	return TargetsDTO{
		CaloriesKcal: kcal,
		ProteinG:     int(math.Round(k * 0.25 / 4)),
		FatG:         int(math.Round(k * 0.30 / 9)),
		CarbsG:       int(math.Round(k * 0.45 / 4)),
		FiberG:       int(math.Round(k * 14 / 1000)),
	}
}

// DefaultCaloriesKcal is used until the user stores targets.
const DefaultCaloriesKcal = 2200

// GetDefaultTargets returns reasonable default nutrition targets.
func GetDefaultTargets() TargetsDTO {
	now := time.Now().UTC()
	t := MacroSplit(DefaultCaloriesKcal)
	t.CreatedAt = now
	t.UpdatedAt = now
	return t
}
