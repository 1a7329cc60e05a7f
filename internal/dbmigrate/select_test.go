package dbmigrate

import (
	"strings"
	"testing"

	"github.com/fdg312/meal-planner/internal/config"
)

func TestSelectDatabaseURL(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.Config
		requireDirect bool
		wantSource    string
		wantWarning   bool
		wantErr       bool
	}{
		{
			name:       "direct wins",
			cfg:        config.Config{DatabaseURLDirect: "postgres://direct", DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"},
			wantSource: "DATABASE_URL_DIRECT",
		},
		{
			name:       "falls back to DATABASE_URL",
			cfg:        config.Config{DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"},
			wantSource: "DATABASE_URL",
		},
		{
			name:        "pooled warns",
			cfg:         config.Config{DatabaseURLPooled: "postgres://pooled"},
			wantSource:  "DATABASE_URL_POOLED",
			wantWarning: true,
		},
		{
			name:          "require direct",
			cfg:           config.Config{DatabaseURLRaw: "postgres://url"},
			requireDirect: true,
			wantErr:       true,
		},
		{
			name:    "nothing configured",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := SelectDatabaseURL(&tt.cfg, tt.requireDirect)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", target)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if target.Source != tt.wantSource {
				t.Errorf("expected source %s, got %s", tt.wantSource, target.Source)
			}
			if (target.Warning != "") != tt.wantWarning {
				t.Errorf("unexpected warning %q", target.Warning)
			}
		})
	}
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	files, err := Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{"00001_recipes.sql", "00002_meal_plans.sql", "00003_custom_meals.sql", "00004_nutrition_targets.sql", "00005_reports.sql", "00006_recipe_checks.sql"}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, files)
	}
}
