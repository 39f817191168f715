// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package workers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tallyvault/tallyvault/internal/config"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/store"
)

// mockWorker is a test implementation of the Worker interface
// that tracks how many times Run and Stop were called.
type mockWorker struct {
	runCount  int
	stopCount int
}

func (m *mockWorker) Run()  { m.runCount++ }
func (m *mockWorker) Stop() { m.stopCount++ }

func TestWorkers_Run_AllWorkersAreCalled(t *testing.T) {
	w1 := &mockWorker{}
	w2 := &mockWorker{}
	w3 := &mockWorker{}

	ws := &Workers{workers: []Worker{w1, w2, w3}}
	ws.Run()

	for i, w := range []*mockWorker{w1, w2, w3} {
		if w.runCount != 1 {
			t.Errorf("worker[%d]: expected runCount=1, got %d", i, w.runCount)
		}
	}
}

func TestWorkers_Run_Empty(t *testing.T) {
	ws := &Workers{workers: []Worker{}}

	// Should not panic on empty workers list
	ws.Run()
}

func TestWorkers_Run_Nil(t *testing.T) {
	ws := &Workers{}

	// Should not panic when workers field is nil
	ws.Run()
}

func TestWorkers_Stop_AllWorkersAreStopped(t *testing.T) {
	w1 := &mockWorker{}
	w2 := &mockWorker{}

	ws := &Workers{workers: []Worker{w1, w2}}
	ws.Run()
	ws.Stop()

	for i, w := range []*mockWorker{w1, w2} {
		if w.stopCount != 1 {
			t.Errorf("worker[%d]: expected stopCount=1, got %d", i, w.stopCount)
		}
	}
}

func TestNewWorkers_NoJobsWithoutConfig(t *testing.T) {
	ws := NewWorkers(config.StructuredConfig{}, store.NewMemoryStorages().Entities, nil, nil, logger.Nop())
	assert.Empty(t, ws.workers)
}

func TestNewWorkers_PushJobWhenHubConfigured(t *testing.T) {
	cfg := config.StructuredConfig{
		Sync: config.Sync{HubURL: "https://hub.example.com", PushInterval: 30 * time.Second},
	}

	ws := NewWorkers(cfg, store.NewMemoryStorages().Entities, nil, nil, logger.Nop())
	assert.Len(t, ws.workers, 1)
	assert.IsType(t, &PushJob{}, ws.workers[0])
}

func TestNewWorkers_RewrapJobWhenIntervalConfigured(t *testing.T) {
	cfg := config.StructuredConfig{
		Rotation: config.Rotation{BatchSize: 25, Interval: 5 * time.Second},
	}

	ws := NewWorkers(cfg, store.NewMemoryStorages().Entities, nil, nil, logger.Nop())
	assert.Len(t, ws.workers, 1)
	assert.IsType(t, &RewrapJob{}, ws.workers[0])
}

func TestNewWorkers_BothJobs(t *testing.T) {
	cfg := config.StructuredConfig{
		Sync:     config.Sync{HubURL: "https://hub.example.com", PushInterval: 30 * time.Second},
		Rotation: config.Rotation{BatchSize: 25, Interval: 5 * time.Second},
	}

	ws := NewWorkers(cfg, store.NewMemoryStorages().Entities, nil, nil, logger.Nop())
	assert.Len(t, ws.workers, 2)
}
