package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnginePolicy holds the named tunables of the planning engine.
type EnginePolicy struct {
	CalorieTolerancePct  float64            `yaml:"calorie_tolerance_pct"`
	NutrientTolerancePct float64            `yaml:"nutrient_tolerance_pct"`
	TopK                 int                `yaml:"top_k"`
	Exhaustion           string             `yaml:"exhaustion"`
	MealWeights          map[string]float64 `yaml:"meal_weights,omitempty"`
	// Seed fixes the regeneration random source; 0 seeds from the runtime.
	Seed uint64 `yaml:"seed,omitempty"`
}

// DefaultEnginePolicy: 10% calorie band, 15% nutrient band, top 5, fail on exhaustion.
func DefaultEnginePolicy() EnginePolicy {
	return EnginePolicy{
		CalorieTolerancePct:  0.10,
		NutrientTolerancePct: 0.15,
		TopK:                 5,
		Exhaustion:           "fail",
	}
}

func loadEnginePolicy() EnginePolicy {
	p := DefaultEnginePolicy()
	p.CalorieTolerancePct = envFloat("ENGINE_CALORIE_TOLERANCE_PCT", p.CalorieTolerancePct)
	p.NutrientTolerancePct = envFloat("ENGINE_NUTRIENT_TOLERANCE_PCT", p.NutrientTolerancePct)
	p.TopK = envInt("ENGINE_TOP_K", p.TopK)
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("ENGINE_EXHAUSTION_POLICY"))); v != "" {
		p.Exhaustion = v
	}
	return p
}

// LoadPolicyFile reads a YAML policy and overlays the fields it sets on base.
func LoadPolicyFile(path string, base EnginePolicy) (EnginePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data, base)
}

// ParsePolicy decodes YAML over base. Unknown keys are rejected.
func ParsePolicy(data []byte, base EnginePolicy) (EnginePolicy, error) {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)

	out := base
	if err := dec.Decode(&out); err != nil {
		return base, fmt.Errorf("decode policy: %w", err)
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

// Validate checks ranges only; label checks belong to the engine.
func (p EnginePolicy) Validate() error {
	if !(p.CalorieTolerancePct > 0 && p.CalorieTolerancePct < 1) {
		return fmt.Errorf("calorie_tolerance_pct must be in (0, 1), got %g", p.CalorieTolerancePct)
	}
	if !(p.NutrientTolerancePct > 0 && p.NutrientTolerancePct < 1) {
		return fmt.Errorf("nutrient_tolerance_pct must be in (0, 1), got %g", p.NutrientTolerancePct)
	}
	if p.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", p.TopK)
	}
	for name, w := range p.MealWeights {
		// NaN fails every comparison
		if !(w > 0) {
			return fmt.Errorf("meal weight for %s must be positive", name)
		}
	}
	return nil
}
