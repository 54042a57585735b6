package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"pharmasys/m/internal/api"
	"pharmasys/m/internal/config"
	"pharmasys/m/internal/database"
	"pharmasys/m/internal/migrations"
	"pharmasys/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	if path := os.Getenv("CATALOG_CSV"); path != "" {
		seed.LoadMedicines(db, path)
	}

	handler := api.New(db, cfg.Secret)

	log.Printf("PharmaSys server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
