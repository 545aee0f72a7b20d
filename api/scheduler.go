/*
scheduler.go - Automated ledger audit scheduler

PURPOSE:
  Periodically rebuilds the capacity ledger from the store and records
  the result as an audit run. A long-running server can drift if the
  database is edited out-of-band or a handler dies between ledger and
  store writes; the audit puts the ledger back on the stored truth and
  leaves a row describing what it found.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each run is a full Rebuild, never an incremental patch
  - Records runs (member/assignment/overflow counts) for the UI

CONFIGURATION:
  - CheckInterval: How often to recompute (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAuditScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Recompute endpoint (manual trigger, same code path)
  - planner/planner.go: Rebuild
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// AuditScheduler recomputes the ledger on an interval.
type AuditScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAuditScheduler creates a new scheduler.
func NewAuditScheduler(handler *Handler) *AuditScheduler {
	return &AuditScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *AuditScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	log.Printf("[Scheduler] Started with check interval: %v", as.CheckInterval)
}

// Stop stops the scheduler.
func (as *AuditScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (as *AuditScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.runAudit()

	for {
		select {
		case <-as.ticker.C:
			as.runAudit()
		case <-as.stop:
			return
		}
	}
}

func (as *AuditScheduler) runAudit() {
	ctx := context.Background()

	run, err := as.Handler.recompute(ctx, "scheduled audit")
	if err != nil {
		log.Printf("[Scheduler] Audit failed: %v", err)
		return
	}
	log.Printf("[Scheduler] Audit %s: %d members, %d assignments, %d overflow cells",
		run.ID, run.Members, run.Assignments, run.OverflowCells)
}

// RunNow triggers an immediate audit (for testing/admin).
func (as *AuditScheduler) RunNow() {
	as.runAudit()
}

// GetNextRunTime returns when the next scheduled audit will occur.
func (as *AuditScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(as.CheckInterval)
}
