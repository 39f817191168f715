package workers

import (
	"github.com/tallyvault/tallyvault/internal/adapter"
	"github.com/tallyvault/tallyvault/internal/config"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/service"
	"github.com/tallyvault/tallyvault/internal/store"
)

type Workers struct {
	workers []Worker
}

// NewWorkers assembles the device daemon's background jobs from the config:
// a push job when a hub is configured, and a rewrap job when a rotation
// interval is set.
func NewWorkers(cfg config.StructuredConfig, entities store.EntityRepository,
	hub adapter.HubAdapter, rotation service.RotationService, logger *logger.Logger) *Workers {
	w := &Workers{}

	if cfg.Sync.HubURL != "" && cfg.Sync.PushInterval > 0 {
		w.workers = append(w.workers,
			NewPushJob(cfg.App.CompanyID, cfg.App.DeviceID, cfg.Sync.PushInterval, entities, hub, rotation, logger))
	}
	if cfg.Rotation.Interval > 0 {
		w.workers = append(w.workers,
			NewRewrapJob(cfg.Rotation.BatchSize, cfg.Rotation.Interval, rotation, logger))
	}

	return w
}

func (w *Workers) Run() {
	for _, worker := range w.workers {
		worker.Run()
	}
}

// Stop signals every worker to finish its current pass and exit.
func (w *Workers) Stop() {
	for _, worker := range w.workers {
		worker.Stop()
	}
}
