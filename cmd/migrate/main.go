package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/orihero/aish-sub002/internal/config"
	"github.com/orihero/aish-sub002/internal/logger"
	"github.com/orihero/aish-sub002/internal/repository/postgres"
	"github.com/rs/zerolog/log"
)

func main() {
	down := flag.Int("down", 0, "number of migrations to roll back instead of migrating up")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	closer, err := logger.Setup(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	log.Info().Str("host", cfg.Database.Host).Int("port", cfg.Database.Port).Msg("Migrating database")

	if *down > 0 {
		err = postgres.RollbackMigrations(cfg.Database.DSN(), cfg.Database.MigrationsURL, *down)
	} else {
		err = postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsURL)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
