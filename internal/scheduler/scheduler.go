package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/topaplus/commandcenter/internal/snapshots"
)

// Refresher reloads source snapshots; *snapshots.Manager satisfies it.
type Refresher interface {
	IDs() []string
	Refresh(ctx context.Context, id string) (*snapshots.Snapshot, error)
}

// Scheduler re-fetches every source on a cron spec so interactive requests
// rarely pay for a cold load.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Timeout   time.Duration
	Ctx       context.Context
	log       zerolog.Logger
}

// NewScheduler accepts standard 5-field specs and descriptors like "@every 10m".
func NewScheduler(ctx context.Context, r Refresher, timeout time.Duration, log zerolog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		Cron:      cron.New(),
		Refresher: r,
		Timeout:   timeout,
		Ctx:       ctx,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Register schedules the refresh of all sources.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.refreshAll); err != nil {
		return fmt.Errorf("register refresh task %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// WarmNow refreshes every source immediately and reports how many failed.
func (s *Scheduler) WarmNow() int {
	return s.refresh()
}

func (s *Scheduler) refreshAll() { s.refresh() }

func (s *Scheduler) refresh() int {
	failed := 0
	for _, id := range s.Refresher.IDs() {
		ctx, cancel := context.WithTimeout(s.Ctx, s.Timeout)
		snap, err := s.Refresher.Refresh(ctx, id)
		cancel()
		if err != nil {
			failed++
			s.log.Error().Err(err).Str("source", id).Msg("scheduled refresh failed")
			continue
		}
		s.log.Info().Str("source", id).Str("snapshot", snap.ID).Int("records", len(snap.Records)).Msg("scheduled refresh done")
	}
	return failed
}
