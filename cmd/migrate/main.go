package main

import (
	"log"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/dbmigrate"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: go run ./cmd/migrate [up|status|down|files]")
	}

	command := os.Args[1]
	switch command {
	case "up", "status", "down":
	case "files":
		names, err := dbmigrate.Files()
		if err != nil {
			log.Fatal(err)
		}
		for _, name := range names {
			log.Printf("migrate: %s", name)
		}
		return
	default:
		log.Fatalf("unsupported command %q (allowed: up, status, down, files)", command)
	}

	cfg := config.Load()
	target, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	if target.Warning != "" {
		log.Printf("WARN migrate: %s", target.Warning)
	}
	log.Printf("migrate: command=%s using=%s", command, target.Source)

	if err := dbmigrate.Run(command, target.URL); err != nil {
		log.Fatal(err)
	}

	log.Printf("migrate: %s completed successfully", command)
}
