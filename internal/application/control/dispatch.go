package control

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/logger"
)

// Dispatcher fans a run's pending entities out onto its per-run FIFO queue
// and hands the queue to the drain supervisor.
type Dispatcher struct {
	queue      domain.WorkQueue
	store      domain.EntityStore
	supervisor *DrainSupervisor
	logger     *zap.Logger
}

// NewDispatcher wires a dispatcher
func NewDispatcher(queue domain.WorkQueue, store domain.EntityStore, supervisor *DrainSupervisor, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{queue: queue, store: store, supervisor: supervisor, logger: log}
}

// Dispatch creates the run's queue, enqueues the store projection of every
// entity still marked N, and starts the area's drain workers. Queue creation
// and worker start failures bubble to the caller; a single enqueue failure
// does not (that entity is marked F in the store and left behind)
func (d *Dispatcher) Dispatch(ctx context.Context, run *domain.SyncRun) error {
	spec, err := domain.TableFor(run.Table)
	if err != nil {
		return err
	}

	q, err := d.queue.Create(ctx, run.QueueName())
	if err != nil {
		return fmt.Errorf("create work queue: %w", err)
	}

	enqueued := 0
	for _, stub := range run.Entities {
		rec, err := d.store.FindByID(ctx, run.Table, stub.EntityID)
		if err != nil {
			d.logger.Warn("dispatch skipped unknown entity",
				logger.RunID(run.ID), zap.String("entity_id", stub.EntityID), zap.Error(err))
			continue
		}
		if rec.TxStatus != domain.TxStatusNew {
			continue
		}

		body, err := json.Marshal(domain.QueuedEntity{
			Frontend:    rec.Frontend,
			BusinessKey: rec.BusinessKey,
			DataType:    rec.DataType,
			TxStatus:    string(rec.TxStatus),
			TxNote:      rec.TxNote,
		})
		if err != nil {
			return fmt.Errorf("encode queued entity: %w", err)
		}

		if err := q.Enqueue(ctx, run.ID, body); err != nil {
			d.logger.Error("enqueue failed, marking entity failed",
				logger.RunID(run.ID), zap.String("entity_id", rec.ID), zap.Error(err))
			if uerr := d.store.UpdateStatus(ctx, run.Table, rec.ID, domain.EntityStatus{
				TxStatus: domain.TxStatusFail,
				TxNote:   fmt.Sprintf("enqueue failed: %v", err),
			}); uerr != nil {
				d.logger.Error("failed to mark entity failed",
					logger.RunID(run.ID), zap.String("entity_id", rec.ID), zap.Error(uerr))
			}
			continue
		}
		enqueued++
	}

	d.logger.Info("run dispatched",
		logger.RunID(run.ID), logger.Table(run.Table),
		zap.String("queue", run.QueueName()), zap.Int("enqueued", enqueued))

	if err := d.supervisor.StartForRun(ctx, run, spec.Area); err != nil {
		return fmt.Errorf("start drain workers: %w", err)
	}
	return nil
}
