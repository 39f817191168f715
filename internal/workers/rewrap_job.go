// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/rotation"
	"github.com/tallyvault/tallyvault/internal/service"
	"github.com/tallyvault/tallyvault/models"
)

// RewrapJob drives an in-progress key rotation to completion in the
// background: one bounded rewrap batch per tick, then finalization once no
// entity references the retiring epoch. While no rotation is in progress the
// job idles.
type RewrapJob struct {
	batchSize int
	interval  time.Duration

	rotation service.RotationService
	logger   *logger.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRewrapJob constructs the rewrap job.
func NewRewrapJob(batchSize int, interval time.Duration,
	rotationService service.RotationService, logger *logger.Logger) *RewrapJob {
	return &RewrapJob{
		batchSize: batchSize,
		interval:  interval,
		rotation:  rotationService,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run starts the rewrap loop in its own goroutine and returns.
func (j *RewrapJob) Run() {
	go func() {
		defer close(j.done)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-j.stop:
				return
			case <-ticker.C:
				if err := j.StepOnce(context.Background()); err != nil {
					j.logger.Err(err).Str("func", "RewrapJob.Run").Msg("rewrap step failed")
				}
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the current pass to finish.
func (j *RewrapJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
	<-j.done
}

// StepOnce advances an in-progress rotation by one batch. A no-op when no
// rotation is running.
func (j *RewrapJob) StepOnce(ctx context.Context) error {
	status, err := j.rotation.Status(ctx)
	if err != nil {
		return err
	}
	if status.State != models.RotationRewrapping {
		return nil
	}

	if status.Remaining > 0 {
		if _, err = j.rotation.RewrapNext(ctx, j.batchSize); err != nil {
			return err
		}
		return nil
	}

	_, err = j.rotation.Finalize(ctx)
	if errors.Is(err, rotation.ErrNoRotationInProgress) {
		// Someone else finalized between the status read and this call.
		return nil
	}
	return err
}
