package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/ivankudzin/tgapp/subscriptions/internal/config"
	pgrepo "github.com/ivankudzin/tgapp/subscriptions/internal/repo/postgres"
)

func main() {
	status := flag.Bool("status", false, "print migration status instead of applying")
	flag.Parse()

	_ = godotenv.Load()

	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	if *status {
		if err := pgrepo.MigrationStatus(db); err != nil {
			log.Fatalf("migration status: %v", err)
		}
		return
	}

	if err := pgrepo.RunMigrations(db); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	log.Printf("migrations applied")
}
