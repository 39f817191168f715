package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/tallyvault/tallyvault/internal/adapter"
	"github.com/tallyvault/tallyvault/internal/config"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/service"
	"github.com/tallyvault/tallyvault/internal/store"
	"github.com/tallyvault/tallyvault/internal/workers"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("tallyvault-device")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	db, err := store.NewConnectSQLite(ctx, cfg.Storage.Local, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening local vault file")
	}

	if err = db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("error applying migrations")
	}

	storages := store.NewStorages(db, log)
	services := service.NewServices(storages, *cfg, log)

	if err = services.RotationService.EnsureReady(ctx); err != nil {
		log.Fatal().Err(err).Msg("error preparing company key epochs")
	}

	var hub adapter.HubAdapter
	if cfg.Sync.HubURL != "" {
		hub = adapter.NewHTTPHubAdapter(adapter.HTTPClientConfig{
			BaseURL: cfg.Sync.HubURL,
			Timeout: cfg.Sync.RequestTimeout,
		})

		if _, err = hub.RegisterDevice(ctx, cfg.App.DeviceID); err != nil {
			// The hub may be unreachable or the device already registered;
			// push cycles will surface the persistent failure.
			log.Warn().Err(err).Msg("device registration on hub failed")
		}

		// Adopt the hub's epoch set before the first push, so everything this
		// replica seals is wrapped under keys the hub can open. Each push
		// cycle refreshes the set again.
		if records, fetchErr := hub.FetchEpochs(ctx); fetchErr != nil {
			log.Warn().Err(fetchErr).Msg("fetching hub key epochs failed")
		} else if err = services.RotationService.AdoptEpochs(ctx, records); err != nil {
			log.Fatal().Err(err).Msg("error adopting hub key epochs")
		}
	}

	jobs := workers.NewWorkers(*cfg, storages.Entities, hub, services.RotationService, log)
	jobs.Run()
	log.Info().Msg("device daemon started")

	<-ctx.Done()

	jobs.Stop()
	log.Info().Msg("device daemon stopped gracefully")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
