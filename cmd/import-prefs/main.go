package main

import (
	"context"
	"flag"
	"log"

	"office-quiz/internal/config"
	"office-quiz/internal/db"
)

func main() {
	filePath := flag.String("file", "preferences.csv", "path to preferences csv (key,value)")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	loaded, err := db.LoadPreferences(context.Background(), db.NewStore(conn), *filePath)
	if err != nil {
		log.Fatalf("failed to load preferences: %v", err)
	}
	log.Printf("loaded %d preferences", loaded)
}
