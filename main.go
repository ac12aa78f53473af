package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prk-tuition/homework-service/internal/app"
	"github.com/prk-tuition/homework-service/internal/config"
	"github.com/prk-tuition/homework-service/internal/database"
	"github.com/prk-tuition/homework-service/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrateDirection := migrateCmd.String("direction", "up", "direction of migration (up/down)")

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	switch command {
	case "serve":
		serve(ctx, cfg, log)
	case "migrate":
		migrateCmd.Parse(os.Args[2:])
		runMigrations(cfg, log, *migrateDirection)
	case "worker":
		log.Info().Msg("Starting notification worker")
		if err := app.RunWorker(ctx, cfg, log); err != nil {
			log.Fatal().Err(err).Msg("Notification worker failed")
		}
		log.Info().Msg("Notification worker stopped")
	case "import-sheets":
		report, err := app.RunImport(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to import spreadsheets")
		}
		log.Info().Interface("report", report).Msg("Import finished")
	default:
		log.Fatal().Msgf("Unknown command %q. Use serve, migrate, worker or import-sheets", command)
	}
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) {
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	go func() {
		if err := application.Run(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run application")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
	}
}

func runMigrations(cfg *config.Config, log zerolog.Logger, direction string) {
	migrator, err := database.NewMigrator(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}

	switch direction {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied successfully")
	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatal().Err(err).Msg("Failed to rollback migrations")
		}
		log.Info().Msg("Migrations rolled back successfully")
	default:
		log.Fatal().Msg("Invalid migration direction. Use 'up' or 'down'")
	}

	if version, dirty, err := migrator.Version(); err == nil {
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
	}
}
