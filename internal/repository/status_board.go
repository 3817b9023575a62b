package repository

import (
	"context"
	"sync"

	"arbwatch/internal/domain/models"
)

// StatusSnapshot is the latest view of the monitor as seen through its events.
type StatusSnapshot struct {
	State           models.MonitorState       `json:"state"`
	LastObservation *models.SpreadObservation `json:"last_observation,omitempty"`
	LastSignal      *models.ArbitrageSignal   `json:"last_signal,omitempty"`
	Stats           models.SessionStats       `json:"stats"`
	Observations    int64                     `json:"observations"`
}

// StatusBoard is an in-memory sink read by the HTTP API. It only ever holds
// copies, so the monitor keeps exclusive ownership of its session stats.
type StatusBoard struct {
	mu   sync.RWMutex
	snap StatusSnapshot
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{snap: StatusSnapshot{State: models.StateIdle}}
}

func (b *StatusBoard) Name() string { return "status" }

func (b *StatusBoard) Handle(_ context.Context, ev models.MonitorEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	obs := ev.Observation
	b.snap.State = ev.State
	b.snap.LastObservation = &obs
	b.snap.Stats = ev.Stats
	if ev.Kind == models.EventObservation {
		b.snap.Observations++
	}
	if ev.Signal != nil {
		sig := *ev.Signal
		b.snap.LastSignal = &sig
	}
	return nil
}

func (b *StatusBoard) Close() error { return nil }

// Snapshot returns a copy of the current status.
func (b *StatusBoard) Snapshot() StatusSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}
