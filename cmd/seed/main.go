package main

import (
	"log"

	"sellit/config"
	"sellit/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	gormDB, err := db.NewDB(cfg.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	if err := db.SeedCountries(gormDB); err != nil {
		log.Fatalf("seed countries failed: %v", err)
	}
	if err := db.SeedCategories(gormDB); err != nil {
		log.Fatalf("seed categories failed: %v", err)
	}

	log.Println("reference data seeded")
}
