package main

import (
	"log"

	"github.com/example/fintrack/internal/config"
	"github.com/example/fintrack/internal/database"
	"github.com/example/fintrack/internal/routes"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	app := routes.NewApp(db, cfg)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
