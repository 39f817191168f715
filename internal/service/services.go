package service

import (
	"sync"

	"github.com/tallyvault/tallyvault/internal/audit"
	"github.com/tallyvault/tallyvault/internal/config"
	"github.com/tallyvault/tallyvault/internal/crypto"
	"github.com/tallyvault/tallyvault/internal/engine"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/merge"
	"github.com/tallyvault/tallyvault/internal/rotation"
	"github.com/tallyvault/tallyvault/internal/store"
)

type Services struct {
	SyncService     SyncService
	RotationService RotationService
	DeviceService   DeviceService
}

// NewServices wires the synchronization core for one company replica: the
// keyring, merge registry, audit recorder, engine and rotation coordinator,
// exposed through the service interfaces. The engine and the coordinator
// share one company mutex so a merge and a rewrap batch never interleave.
func NewServices(storages store.Storages, cfg config.StructuredConfig, logger *logger.Logger) *Services {
	keyring := crypto.NewKeyring(cfg.App.CompanyID, cfg.App.MasterSecret, []byte(cfg.App.EpochSalt))
	registry := merge.NewRegistry()
	recorder := audit.NewRecorder(storages.Audit, logger)
	companyLock := &sync.Mutex{}

	eng := engine.NewEngine(cfg.App.CompanyID, cfg.App.DeviceID,
		storages.Entities, keyring, registry, recorder, companyLock, logger)
	coordinator := rotation.NewCoordinator(cfg.App.CompanyID, cfg.App.DeviceID,
		storages, keyring, recorder, companyLock, logger)

	return &Services{
		SyncService:     NewSyncService(eng, recorder, logger),
		RotationService: NewRotationService(coordinator, logger),
		DeviceService:   NewDeviceService(storages.Devices, coordinator, cfg.App, logger),
	}
}
