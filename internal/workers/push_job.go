// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package workers

import (
	"context"
	"sync"
	"time"

	"github.com/tallyvault/tallyvault/internal/adapter"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/service"
	"github.com/tallyvault/tallyvault/internal/store"
	"github.com/tallyvault/tallyvault/models"
)

// pushBatchLimit caps how many entities one push cycle ships to the hub.
// Anything beyond the cap is picked up by the next tick.
const pushBatchLimit = 100

// PushJob periodically ships locally modified entities to the hub. Every
// cycle first adopts the hub's current epoch set, so the entities it pushes
// stay sealed under keys the hub can open even across a hub-side rotation.
// The watermark only advances after a successful push, so a failed cycle
// retries the same entities on the next tick.
type PushJob struct {
	companyID string
	deviceID  string
	interval  time.Duration

	entities store.EntityRepository
	hub      adapter.HubAdapter
	rotation service.RotationService
	logger   *logger.Logger

	// since is the modification watermark of the last successful push.
	since time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewPushJob constructs the push job for one device replica.
func NewPushJob(companyID, deviceID string, interval time.Duration,
	entities store.EntityRepository, hub adapter.HubAdapter,
	rotationService service.RotationService, logger *logger.Logger) *PushJob {
	return &PushJob{
		companyID: companyID,
		deviceID:  deviceID,
		interval:  interval,
		entities:  entities,
		hub:       hub,
		rotation:  rotationService,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run starts the push loop in its own goroutine and returns.
func (p *PushJob) Run() {
	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				if err := p.PushOnce(context.Background()); err != nil {
					p.logger.Err(err).Str("func", "PushJob.Run").Msg("push cycle failed")
				}
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the current pass to finish.
func (p *PushJob) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}

// PushOnce runs a single push cycle: adopt the hub's epoch set, collect
// entities modified since the watermark, ship them, advance the watermark on
// success.
func (p *PushJob) PushOnce(ctx context.Context) error {
	cycleStart := time.Now()

	if err := p.refreshEpochs(ctx); err != nil {
		return err
	}

	modified, err := p.entities.ListModifiedSince(ctx, p.companyID, p.since, pushBatchLimit)
	if err != nil {
		return err
	}
	if len(modified) == 0 {
		return nil
	}

	result, err := p.hub.PushBatch(ctx, models.BatchRequest{
		DeviceID: p.deviceID,
		Entities: modified,
	})
	if err != nil {
		return err
	}

	p.since = cycleStart
	p.logger.Info().
		Str("func", "PushJob.PushOnce").
		Int("pushed", len(modified)).
		Int("applied", len(result.Applied)).
		Int("failed", len(result.Failed)).
		Msg("push cycle finished")
	return nil
}

// refreshEpochs adopts the hub's current epoch set so this replica keeps
// sealing under keys the hub can open, including mid-rotation epoch
// switches.
func (p *PushJob) refreshEpochs(ctx context.Context) error {
	records, err := p.hub.FetchEpochs(ctx)
	if err != nil {
		return err
	}
	return p.rotation.AdoptEpochs(ctx, records)
}
