// Command migrate applies the database schema. Production servers do not
// migrate on startup, so deployments run this first.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"chronicle/internal/config"
	"chronicle/internal/database"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := gorm.Open(postgres.Open(database.DSN(cfg)), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return err
	}
	log.Println("schema migrations applied")
	return nil
}
