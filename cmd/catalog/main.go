// Command catalog validates, lists, queries and imports recipe catalogs.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/fdg312/meal-planner/internal/matcher"
	"github.com/fdg312/meal-planner/internal/recipes"
	"github.com/fdg312/meal-planner/internal/storage/postgres"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

var fileFlag = &cli.StringFlag{
	Name:    "file",
	Aliases: []string{"f"},
	Usage:   "Path to a JSON recipe array (default: the embedded catalog)",
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Inspect and import recipe catalogs",
		Commands: []*cli.Command{
			validateCmd(),
			listCmd(),
			matchCmd(),
			importCmd(),
		},
	}
}

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Normalize a recipe file and report entries that do not conform",
		Flags: []cli.Flag{
			fileFlag,
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit with non-zero status if any entry is skipped",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			list, issues, err := loadRecipes(cmd.String("file"))
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			for _, issue := range issues {
				fmt.Fprintf(w, "skipped %s\n", issue)
			}
			fmt.Fprintf(w, "valid=%d skipped=%d\n", len(list), len(issues))

			if cmd.Bool("strict") && len(issues) > 0 {
				return fmt.Errorf("%d entries failed validation", len(issues))
			}
			return nil
		},
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print catalog recipes, optionally filtered by dietary type",
		Flags: []cli.Flag{
			fileFlag,
			&cli.StringFlag{
				Name:    "dietary-type",
				Aliases: []string{"d"},
				Usage:   "Keto | Vegan | Vegetarian | Non-Vegetarian | Mediterranean | Desi",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cat, err := loadCatalog(cmd.String("file"))
			if err != nil {
				return err
			}

			list := cat.All()
			if raw := cmd.String("dietary-type"); raw != "" {
				dt, err := recipes.ParseDietaryType(raw)
				if err != nil {
					return err
				}
				list = cat.ByDietaryType(dt)
			}

			return printRecipes(cmd.Root().Writer, list, nil)
		},
	}
}

func matchCmd() *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Run a calorie, ingredient or nutrient query against the catalog",
		Flags: []cli.Flag{
			fileFlag,
			&cli.StringFlag{Name: "dietary-type", Aliases: []string{"d"}, Usage: "Dietary type filter"},
			&cli.FloatFlag{Name: "calories", Aliases: []string{"c"}, Usage: "Calorie target"},
			&cli.StringFlag{Name: "ingredient", Aliases: []string{"i"}, Usage: "Ingredient substring"},
			&cli.StringSliceFlag{Name: "restriction", Aliases: []string{"r"}, Usage: "Required restriction tag (repeatable)"},
			&cli.StringFlag{Name: "nutrient", Aliases: []string{"n"}, Usage: "Nutrient type for a nutrient query"},
			&cli.FloatFlag{Name: "value", Usage: "Nutrient target value"},
			&cli.FloatFlag{Name: "calorie-tolerance", Value: matcher.DefaultTolerances.CaloriePct, Usage: "Calorie band as a fraction"},
			&cli.FloatFlag{Name: "nutrient-tolerance", Value: matcher.DefaultTolerances.NutrientPct, Usage: "Nutrient band as a fraction"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cat, err := loadCatalog(cmd.String("file"))
			if err != nil {
				return err
			}

			tol := matcher.Tolerances{
				CaloriePct:  cmd.Float("calorie-tolerance"),
				NutrientPct: cmd.Float("nutrient-tolerance"),
			}
			if err := tol.Validate(); err != nil {
				return err
			}
			m := matcher.New(tol)

			var found []matcher.Candidate
			switch {
			case cmd.String("ingredient") != "":
				found, err = m.Ingredient(cat, matcher.IngredientQuery{
					Ingredient:   cmd.String("ingredient"),
					Restrictions: cmd.StringSlice("restriction"),
					DietaryType:  recipes.DietaryType(cmd.String("dietary-type")),
				})
			case cmd.String("nutrient") != "":
				found, err = m.Nutrient(cat, matcher.NutrientQuery{
					Calories: cmd.Float("calories"),
					Nutrient: recipes.NutrientType(cmd.String("nutrient")),
					Value:    cmd.Float("value"),
				})
			default:
				found, err = m.Calories(cat, matcher.CalorieQuery{
					Target:      cmd.Float("calories"),
					DietaryType: recipes.DietaryType(cmd.String("dietary-type")),
				})
			}
			if err != nil {
				return err
			}

			list := make([]recipes.Recipe, len(found))
			distances := make([]float64, len(found))
			for i, c := range found {
				list[i] = c.Recipe
				distances[i] = c.Distance
			}
			return printRecipes(cmd.Root().Writer, list, distances)
		},
	}
}

func importCmd() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Upsert a recipe file into the Postgres catalog",
		Flags: []cli.Flag{
			fileFlag,
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection string",
				Sources: cli.EnvVars("DATABASE_URL_DIRECT", "DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dbURL := strings.TrimSpace(cmd.String("database-url"))
			if dbURL == "" {
				return fmt.Errorf("no database URL configured (set --database-url or DATABASE_URL)")
			}

			list, issues, err := loadRecipes(cmd.String("file"))
			if err != nil {
				return err
			}
			for _, issue := range issues {
				log.Printf("WARNING: skipped %s", issue)
			}

			store, err := postgres.New(ctx, dbURL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer store.Close()

			n, err := store.GetRecipesStorage().UpsertRecipes(ctx, list)
			if err != nil {
				return fmt.Errorf("upsert recipes: %w", err)
			}
			log.Printf("catalog: imported %d recipes (%d skipped)", n, len(issues))
			log.Printf("catalog: send SIGHUP to the API process to serve the new catalog before CATALOG_CACHE_TTL_SECONDS expires")
			return nil
		},
	}
}

func loadRecipes(path string) ([]recipes.Recipe, []recipes.Issue, error) {
	if path == "" {
		list, err := recipes.SeedRecipes()
		return list, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return recipes.Load(f)
}

func loadCatalog(path string) (*recipes.Catalog, error) {
	list, issues, err := loadRecipes(path)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		log.Printf("WARNING: %d entries skipped, run validate for details", len(issues))
	}
	return recipes.NewCatalog(list)
}

func printRecipes(w io.Writer, list []recipes.Recipe, distances []float64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "ID\tNAME\tDIET\tKCAL\tPROTEIN\tFAT\tCARBS"
	if distances != nil {
		header += "\tDISTANCE"
	}
	fmt.Fprintln(tw, header)

	for i, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f\t%.1f\t%.1f",
			r.ID, r.Name, r.DietaryType, r.Calories,
			r.Nutrients.Protein, r.Nutrients.Fats, r.Nutrients.Carbs)
		if distances != nil {
			fmt.Fprintf(tw, "\t%.3f", distances[i])
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprintf(tw, "total: %d\n", len(list))
	return tw.Flush()
}
