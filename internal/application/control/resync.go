package control

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/logger"
)

// ResyncSyncRun re-dispatches a run's unfinished entities as a fresh run.
// Entities that already succeeded (or needed no work) are dropped; the rest
// are re-resolved from the entity store by business key so the new run
// carries current store ids. The old run is deleted and the new run keeps
// the old watermark and store code. When nothing is left to redo, the old
// run is deleted and nil is returned
func (s *Service) ResyncSyncRun(ctx context.Context, id string) (*domain.SyncRun, error) {
	run, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dataType := taskDataType(run.Task)
	var entities []domain.EntityStub
	for _, stub := range run.PendingEntities() {
		rec, err := s.store.FindByBusinessKey(ctx, run.Table, run.Frontend, stub.BusinessKey, dataType)
		if err != nil {
			// The record may have been purged since the original dispatch;
			// there is nothing left to sync for it
			s.logger.Warn("resync dropped unresolvable entity",
				logger.RunID(run.ID), zap.String("business_key", stub.BusinessKey), zap.Error(err))
			continue
		}
		entities = append(entities, rec.Stub())
	}

	if err := s.ledger.Delete(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("delete run before resync: %w", err)
	}

	fresh, err := s.CreateSyncRun(ctx, CreateRunInput{
		BackOffice: run.BackOffice,
		Frontend:   run.Frontend,
		Task:       run.Task,
		Table:      run.Table,
		CutDt:      run.CutDt,
		Offset:     run.Offset,
		StoreCode:  run.StoreCode,
		Entities:   entities,
	})
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		s.logger.Info("resync found nothing to redo", logger.RunID(run.ID))
		return nil, nil
	}

	s.logger.Info("run resynced",
		logger.RunID(run.ID), zap.String("new_run_id", fresh.ID),
		zap.Int("entities", len(fresh.Entities)))
	return fresh, nil
}
