package control

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/logger"
)

// Aggregator turns per-entity store outcomes into a finalized run. It polls
// each entity's readiness with exponential backoff and gives up with a `?`
// once the attempt budget runs out.
type Aggregator struct {
	ledger      domain.LedgerRepository
	store       domain.EntityStore
	alerter     domain.Alerter
	clock       domain.Clock
	logger      *zap.Logger
	maxAttempts int

	// sleep is injectable so tests do not wait out the backoff
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewAggregator wires an aggregator
func NewAggregator(ledger domain.LedgerRepository, store domain.EntityStore, alerter domain.Alerter, clock domain.Clock, log *zap.Logger, maxAttempts int) *Aggregator {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if maxAttempts < 1 {
		maxAttempts = 6
	}
	return &Aggregator{
		ledger:      ledger,
		store:       store,
		alerter:     alerter,
		clock:       clock,
		logger:      log,
		maxAttempts: maxAttempts,
		sleep:       sleepCtx,
	}
}

// FinalizeAsync schedules finalization without blocking the caller. The
// outcome lands in the ledger and the log; nothing is returned
func (a *Aggregator) FinalizeAsync(ctx context.Context, runID string) {
	go func() {
		// Detach from the caller's cancellation; finalization must outlive
		// the drain pass that triggered it
		if err := a.Finalize(context.WithoutCancel(ctx), runID); err != nil {
			a.logger.Error("run finalization reported failure",
				logger.RunID(runID), zap.Error(err))
		}
	}()
}

// Finalize collects every entity's outcome, folds them into the run and
// persists the terminal status. A non-Completed terminal status is returned
// as an error after logging and alerting
func (a *Aggregator) Finalize(ctx context.Context, runID string) error {
	run, err := a.ledger.FindByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run for finalization: %w", err)
	}

	results := make([]domain.EntityStub, 0, len(run.Entities))
	for _, stub := range run.Entities {
		results = append(results, a.collect(ctx, run, stub))
	}

	run.Finalize(results, a.clock.Now())
	if err := a.ledger.Save(ctx, run); err != nil {
		return fmt.Errorf("save finalized run: %w", err)
	}

	if run.Status != domain.RunStatusCompleted {
		a.logger.Error("sync run did not complete",
			logger.RunID(run.ID), logger.Task(run.Task), logger.Frontend(run.Frontend),
			zap.String("status", run.Status.String()))
		if a.alerter != nil {
			a.alerter.Alert(ctx, fmt.Sprintf("sync run %s: %s", run.Status, run.Task), map[string]any{
				"run_id":   run.ID,
				"task":     run.Task,
				"frontend": run.Frontend,
				"table":    run.Table,
				"status":   run.Status.String(),
			})
		}
		return fmt.Errorf("run %s finalized as %s", run.ID, run.Status)
	}

	a.logger.Info("sync run completed",
		logger.RunID(run.ID), logger.Task(run.Task), logger.Frontend(run.Frontend),
		zap.Int("entities", len(run.Entities)))
	return nil
}

// collect polls one entity until its outcome is reportable or the attempt
// budget runs out, in which case the outcome is `?`
func (a *Aggregator) collect(ctx context.Context, run *domain.SyncRun, stub domain.EntityStub) domain.EntityStub {
	for attempt := 0; ; attempt++ {
		rec, err := a.store.FindByID(ctx, run.Table, stub.EntityID)
		if err == nil && rec.TxStatus.Ready() {
			stub.TaskStatus = domain.TaskStatus(rec.TxStatus)
			stub.TaskDetail = domain.TaskDetail{
				Note:      rec.TxNote,
				TargetKey: rec.TargetKey,
			}
			return stub
		}
		if err != nil {
			a.logger.Warn("entity lookup failed while aggregating",
				logger.RunID(run.ID), zap.String("entity_id", stub.EntityID), zap.Error(err))
		}

		if attempt+1 >= a.maxAttempts {
			stub.TaskStatus = domain.TaskStatusUnknown
			stub.TaskDetail = domain.TaskDetail{
				Note: fmt.Sprintf("no outcome after %d polls", a.maxAttempts),
			}
			return stub
		}

		// 2^n * 0.5s after the first miss
		backoff := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
		if !a.sleep(ctx, backoff) {
			stub.TaskStatus = domain.TaskStatusUnknown
			stub.TaskDetail = domain.TaskDetail{Note: "aggregation canceled"}
			return stub
		}
	}
}
