/*
scheduler.go - Automated overdue assessment

PURPOSE:
  Periodically sweeps every registered organization for installments past
  their due date, marks them OVERDUE, and reprices penalties.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Assessment is idempotent: penalties are recomputed from scratch each
    sweep, so re-running for the same date changes nothing
  - Orgs register as setups are applied; a fixed list can also be given
    at construction

USAGE:
  scheduler := NewOverdueScheduler(service, log, "mfi-demo")
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: AssessOverdue endpoint (manual trigger)
  - lifecycle/overdue.go: The assessment itself
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian/lending-engine/lifecycle"
)

// OverdueScheduler sweeps registered orgs for late installments.
type OverdueScheduler struct {
	Service       *lifecycle.Service
	CheckInterval time.Duration
	Enabled       bool

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup

	mu   sync.Mutex
	orgs map[string]struct{}
}

// NewOverdueScheduler creates a scheduler covering the given orgs.
func NewOverdueScheduler(service *lifecycle.Service, log zerolog.Logger, orgs ...string) *OverdueScheduler {
	s := &OverdueScheduler{
		Service:       service,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log.With().Str("component", "overdue-scheduler").Logger(),
		stop:          make(chan struct{}),
		orgs:          make(map[string]struct{}),
	}
	for _, org := range orgs {
		s.orgs[org] = struct{}{}
	}
	return s
}

// RegisterOrg adds an org to future sweeps.
func (s *OverdueScheduler) RegisterOrg(orgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[orgID] = struct{}{}
}

// Start begins the scheduler.
func (s *OverdueScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info().Msg("disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.log.Info().Dur("interval", s.CheckInterval).Msg("started")
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (s *OverdueScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.log.Info().Msg("stopped")
	}
}

func (s *OverdueScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start.
	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *OverdueScheduler) sweep() {
	ctx := context.Background()
	asOf := time.Now().UTC()

	s.mu.Lock()
	orgs := make([]string, 0, len(s.orgs))
	for org := range s.orgs {
		orgs = append(orgs, org)
	}
	s.mu.Unlock()

	for _, org := range orgs {
		summary, err := s.Service.AssessOverdue(ctx, org, asOf)
		if err != nil {
			s.log.Error().Err(err).Str("org_id", org).Msg("overdue sweep failed")
			continue
		}
		if summary.LoansOverdue > 0 {
			s.log.Info().
				Str("org_id", org).
				Int("loans_overdue", summary.LoansOverdue).
				Int("installments_late", summary.InstallmentsLate).
				Str("penalties", summary.PenaltiesAssessed.StringFixed()).
				Msg("overdue sweep completed")
		}
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (s *OverdueScheduler) RunNow() {
	s.sweep()
}
