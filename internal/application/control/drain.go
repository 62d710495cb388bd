package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/datawald/hub/internal/domain/shared"
	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/logger"
)

// DrainConfig carries the drain-loop tunables
type DrainConfig struct {
	// ReceiveBatchSize bounds how many messages one pass takes
	ReceiveBatchSize int
	// Backoff is the pause between passes while the queue is non-empty
	Backoff time.Duration
	// ErrorBackoff is the longer pause after a failed pass
	ErrorBackoff time.Duration
	// BackOfficeAgents / FrontEndAgents is how many workers drain one run's
	// queue per area
	BackOfficeAgents int
	FrontEndAgents   int
	// InvocationTTL is how long a drain invocation stays marked in the
	// idempotency store
	InvocationTTL time.Duration
}

func (c *DrainConfig) applyDefaults() {
	if c.ReceiveBatchSize <= 0 {
		c.ReceiveBatchSize = 10
	}
	if c.Backoff <= 0 {
		c.Backoff = 5 * time.Second
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 15 * time.Second
	}
	if c.BackOfficeAgents <= 0 {
		c.BackOfficeAgents = 1
	}
	if c.FrontEndAgents <= 0 {
		c.FrontEndAgents = 1
	}
	if c.InvocationTTL <= 0 {
		c.InvocationTTL = 24 * time.Hour
	}
}

// DrainSupervisor owns the long-lived drain workers. Each dispatched run
// gets its area's worker count; a worker loops until the run's queue is
// empty, then deletes the queue and triggers finalization.
type DrainSupervisor struct {
	queue       domain.WorkQueue
	executor    domain.TaskExecutor
	aggregator  *Aggregator
	idempotency shared.IdempotencyStore
	logger      *zap.Logger
	cfg         DrainConfig

	mu      stdsync.Mutex
	wg      stdsync.WaitGroup
	stopped bool
}

// NewDrainSupervisor wires a drain supervisor
func NewDrainSupervisor(queue domain.WorkQueue, executor domain.TaskExecutor, aggregator *Aggregator, idempotency shared.IdempotencyStore, log *zap.Logger, cfg DrainConfig) *DrainSupervisor {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.applyDefaults()
	return &DrainSupervisor{
		queue:       queue,
		executor:    executor,
		aggregator:  aggregator,
		idempotency: idempotency,
		logger:      log,
		cfg:         cfg,
	}
}

// StartForRun launches the area's worker count against the run's queue.
// Duplicate invocations for the same run and slot are detected through the
// idempotency store and skipped silently
func (s *DrainSupervisor) StartForRun(ctx context.Context, run *domain.SyncRun, area domain.Area) error {
	// The lock spans the stopped check and every wg.Add so Stop cannot
	// begin waiting between the check and a worker launch.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("drain supervisor is stopped")
	}

	agents := s.cfg.BackOfficeAgents
	if area == domain.AreaFrontEnd {
		agents = s.cfg.FrontEndAgents
	}

	for i := 0; i < agents; i++ {
		invocationID := fmt.Sprintf("%s:%d", run.ID, i)
		fresh, err := s.idempotency.MarkProcessed(ctx, invocationID, s.cfg.InvocationTTL)
		if err != nil {
			return fmt.Errorf("mark drain invocation: %w", err)
		}
		if !fresh {
			s.logger.Info("duplicate drain invocation skipped",
				logger.RunID(run.ID), zap.Int("slot", i))
			continue
		}

		worker := &drainWorker{
			supervisor: s,
			run:        run,
			area:       area,
			slot:       i,
			logger: s.logger.With(logger.RunID(run.ID),
				zap.String("area", string(area)), zap.Int("slot", i)),
		}
		s.wg.Add(1)
		go worker.loop(ctx)
	}
	return nil
}

// Stop waits for every worker to finish its current pass and exit. Workers
// observe ctx cancellation; Stop only waits
func (s *DrainSupervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.wg.Wait()
}

type drainWorker struct {
	supervisor *DrainSupervisor
	run        *domain.SyncRun
	area       domain.Area
	slot       int
	logger     *zap.Logger
}

// loop drains the run's queue until empty. Errors never escape: a failed
// pass backs off and retries, keeping the queue's messages in flight
func (w *drainWorker) loop(ctx context.Context) {
	defer w.supervisor.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.pass(ctx)
		if done {
			return
		}
		backoff := w.supervisor.cfg.Backoff
		if err != nil {
			w.logger.Warn("drain pass failed", zap.Error(err))
			backoff = w.supervisor.cfg.ErrorBackoff
		}
		if !sleepCtx(ctx, backoff) {
			return
		}
	}
}

// pass performs one receive/execute/delete cycle. done is true when the
// worker has nothing left to do for this run
func (w *drainWorker) pass(ctx context.Context) (done bool, err error) {
	q, err := w.supervisor.queue.Resolve(ctx, w.run.QueueName())
	if errors.Is(err, domain.ErrQueueNotFound) {
		// Another worker already drained and dropped the queue
		w.logger.Debug("queue gone, nothing to drain")
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve queue: %w", err)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		return false, fmt.Errorf("read queue depth: %w", err)
	}
	if depth == 0 {
		if err := q.Drop(ctx); err != nil {
			return false, fmt.Errorf("drop drained queue: %w", err)
		}
		w.logger.Info("queue drained")
		w.supervisor.aggregator.FinalizeAsync(ctx, w.run.ID)
		return true, nil
	}

	msgs, err := q.Receive(ctx, w.supervisor.cfg.ReceiveBatchSize)
	if err != nil {
		return false, fmt.Errorf("receive batch: %w", err)
	}
	if len(msgs) == 0 {
		// Depth counted only in-flight messages held by another worker
		return false, nil
	}

	entities := make([]domain.QueuedEntity, 0, len(msgs))
	for _, m := range msgs {
		var qe domain.QueuedEntity
		if err := json.Unmarshal(m.Body, &qe); err != nil {
			return false, fmt.Errorf("decode queued entity: %w", err)
		}
		entities = append(entities, qe)
	}

	cmd := w.command(entities)
	if err := w.supervisor.executor.Execute(ctx, cmd); err != nil {
		// Leave the batch in flight; it re-delivers after the visibility
		// timeout
		return false, fmt.Errorf("execute batch: %w", err)
	}

	for _, m := range msgs {
		if err := q.Delete(ctx, m.Handle); err != nil {
			return false, fmt.Errorf("delete processed message: %w", err)
		}
	}
	return false, nil
}

// command builds the task-executor envelope for one batch
func (w *drainWorker) command(entities []domain.QueuedEntity) domain.Command {
	spec, _ := domain.TableFor(w.run.Table)
	system := w.run.BackOffice
	if w.area == domain.AreaFrontEnd {
		system = w.run.Frontend
	}
	return domain.Command{
		Area:    w.area,
		System:  system,
		Subject: spec.Subject,
		Params: domain.CommandParams{
			RunID:      w.run.ID,
			Frontend:   w.run.Frontend,
			BackOffice: w.run.BackOffice,
			Table:      w.run.Table,
			DataType:   taskDataType(w.run.Task),
			Entities:   entities,
		},
	}
}

// sleepCtx sleeps for d unless the context ends first; it reports whether
// the full sleep elapsed
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
