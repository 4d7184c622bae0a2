// cmd/migrate/main.go
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"photobooth-backend/internal/config"
	"photobooth-backend/internal/infrastructure/database"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print pending migrations without applying them")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid config: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("❌ Migrations require DB_DRIVER=postgres, got %q", cfg.Database.Driver)
	}
	dbConfig := cfg.Database.PoolConfig()

	db, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), dbConfig.ConnectTimeout+5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("❌ Database unreachable: %v", err)
	}

	if *dryRun {
		pending, err := database.PendingMigrations(db)
		if err != nil {
			log.Fatalf("❌ Failed to list migrations: %v", err)
		}
		if len(pending) == 0 {
			log.Println("✅ Schema is up to date")
		}
		for _, name := range pending {
			log.Printf("⏳ pending: %s", name)
		}
		return
	}

	log.Println("🗄️  Applying migrations...")
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Migrations applied")
}
