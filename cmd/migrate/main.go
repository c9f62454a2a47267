package main

import (
	"flag"
	"log"
	"os"

	"github.com/johnquangdev/persona-panel/internal/infrastructure/database"
	"github.com/johnquangdev/persona-panel/pkg/config"
)

func main() {
	steps := flag.Int("steps", 1, "migrations to revert with down, 0 reverts all")
	flag.Parse()

	direction := "up"
	if flag.NArg() > 0 {
		direction = flag.Arg(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, dialect, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	log.Println("✅ Database connected successfully")

	switch direction {
	case "up":
		log.Println("🔄 Applying migrations...")
		n, err := database.AutoMigrate(db, dialect)
		if err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		log.Printf("✅ Successfully applied %d migration(s)!\n", n)
	case "down":
		n, err := database.Rollback(db, dialect, *steps)
		if err != nil {
			log.Fatalf("Failed to revert migrations: %v", err)
		}
		log.Printf("✅ Reverted %d migration(s)\n", n)
	case "status":
		applied, err := database.AppliedMigrations(db, dialect)
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		for _, id := range applied {
			log.Printf("  applied  %s", id)
		}
		log.Printf("%d migration(s) applied", len(applied))
	default:
		log.Printf("unknown command %q, expected up, down or status", direction)
		os.Exit(2)
	}
}
