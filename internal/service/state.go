package service

import (
	"context"
	"sync/atomic"

	"github.com/yatra_sevak/backend/internal/crowd"
	"github.com/yatra_sevak/backend/internal/metrics"
	"github.com/yatra_sevak/backend/internal/models"
)

// AppState is the mutable state of one running process. main builds a
// single instance and hands it to the services.
type AppState struct {
	Ledger  *Ledger
	Alerts  *crowd.AlertBook
	Monitor *crowd.Monitor

	surge atomic.Bool
}

func NewAppState(streamCapacity int) *AppState {
	return &AppState{
		Ledger:  NewLedger(),
		Alerts:  crowd.NewAlertBook(),
		Monitor: crowd.NewMonitor(streamCapacity),
	}
}

// SetSurgeActive sets the surge flag and reports whether it changed.
func (s *AppState) SetSurgeActive(active bool) bool {
	changed := s.surge.Swap(active) != active
	if active {
		metrics.SurgeActive.Set(1)
	} else {
		metrics.SurgeActive.Set(0)
	}
	return changed
}

func (s *AppState) SurgeActive() bool {
	return s.surge.Load()
}

// Archive receives a copy of passes and alerts for durable storage. The
// in-memory state stays authoritative; archive errors are logged only.
type Archive interface {
	SavePass(ctx context.Context, entry models.QueueEntry) error
	DeletePasses(ctx context.Context, passIDs []string) error
	SaveAlert(ctx context.Context, alert models.Alert) error
	MarkDispatched(ctx context.Context, siteID string) error
}

type NopArchive struct{}

func (NopArchive) SavePass(context.Context, models.QueueEntry) error { return nil }
func (NopArchive) DeletePasses(context.Context, []string) error { return nil }
func (NopArchive) SaveAlert(context.Context, models.Alert) error { return nil }
func (NopArchive) MarkDispatched(context.Context, string) error { return nil }
