// Package scheduler triggers the monthly analysis run and recovers
// runs missed while the process was down, by comparing the Hijri month
// of the last successful run with the current one.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"ZakatSentinel/internal/calendar"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// RunFunc executes one analysis cycle.
type RunFunc func(ctx context.Context) error

// state is the plaintext last-run file. It holds a timestamp only, no
// financial data.
type state struct {
	LastRun *time.Time `json:"last_run"`
}

// Scheduler owns the cron loop and the last-run state file.
type Scheduler struct {
	mu        sync.Mutex
	cron      *cron.Cron
	entryID   cron.EntryID
	statePath string
	run       RunFunc
	ctx       context.Context
	now       func() time.Time
	lastRun   *time.Time
}

// New creates a Scheduler persisting last-run state at statePath.
func New(ctx context.Context, statePath string, run RunFunc) *Scheduler {
	s := &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		statePath: statePath,
		run:       run,
		ctx:       ctx,
		now:       time.Now,
	}
	s.loadState()
	return s
}

// Register adds the monthly analysis job.
func (s *Scheduler) Register(monthlyCron string) error {
	id, err := s.cron.AddFunc(monthlyCron, s.runJob)
	if err != nil {
		return fmt.Errorf("register monthly task: %w", err)
	}
	s.entryID = id
	return nil
}

// Start begins the cron loop and triggers a recovery run when the last
// successful run happened in a different Hijri month (or never).
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler started")

	if s.MissedRun() {
		log.Info().Msg("missed monthly run detected, running now")
		go s.runJob()
	}
}

// Stop stops the cron loop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("scheduler stopped")
}

// NextRun reports when the monthly job fires next.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// RunNow triggers the analysis immediately.
func (s *Scheduler) RunNow() {
	s.runJob()
}

// MissedRun reports whether the last successful run is missing or fell
// in a different Hijri month than now.
func (s *Scheduler) MissedRun() bool {
	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()

	if last == nil {
		return true
	}
	return !calendar.SameHijriMonth(*last, s.now())
}

// MarkRun records a successful run (also called by API/CLI triggered
// runs so recovery doesn't double-fire).
func (s *Scheduler) MarkRun(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = &at
	s.saveStateLocked()
}

// LastRun returns the last successful run time, if any.
func (s *Scheduler) LastRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	t := *s.lastRun
	return &t
}

func (s *Scheduler) runJob() {
	log.Info().Msg("running scheduled analysis")
	if err := s.run(s.ctx); err != nil {
		log.Error().Err(err).Msg("scheduled analysis failed")
		return
	}
	s.MarkRun(s.now())
}

func (s *Scheduler) loadState() {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("could not read scheduler state")
		}
		return
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Msg("corrupt scheduler state, ignoring")
		return
	}
	s.lastRun = st.LastRun
}

func (s *Scheduler) saveStateLocked() {
	data, err := json.Marshal(state{LastRun: s.lastRun})
	if err != nil {
		log.Error().Err(err).Msg("serialize scheduler state")
		return
	}
	if err := os.WriteFile(s.statePath, data, 0o600); err != nil {
		log.Error().Err(err).Msg("write scheduler state")
	}
}
