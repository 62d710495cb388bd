// Package backoffice implements push-side orchestration: entities sighted on
// a frontend are transformed and batch-created in a backoffice system, and
// their outcomes reported back to the entity store.
package backoffice

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datawald/hub/internal/domain/connector"
	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/logger"
)

// canceledSourceStatus is the source-side status that requests cancellation
// of an already-pushed document instead of an update
const canceledSourceStatus = "canceled"

// Service is the push-side application service
type Service struct {
	registry *connector.Registry
	store    domain.EntityStore
	logger   *zap.Logger
}

// NewService wires the push-side service
func NewService(registry *connector.Registry, store domain.EntityStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{registry: registry, store: store, logger: log}
}

// InsertEntities pushes one batch of queued entities into the named
// backoffice system. Every resolvable entity receives exactly one status
// update; a single entity's failure never aborts the rest of the batch
func (s *Service) InsertEntities(ctx context.Context, system string, params domain.CommandParams) error {
	agent, err := s.registry.BackOffice(system)
	if err != nil {
		return err
	}
	spec, err := domain.TableFor(params.Table)
	if err != nil {
		return err
	}
	// Stack mode: the same business key legitimately accumulates documents
	// on the target side, so an existing target id never short-circuits
	stack := spec.Table == "itemreceipts"

	log := s.logger.With(logger.Table(params.Table), logger.BackOffice(system))

	outcomes := make(map[string]domain.EntityStatus)
	var toInsert []connector.NewEntity

	for _, qe := range params.Entities {
		rec, err := s.store.FindByBusinessKey(ctx, params.Table, qe.Frontend, qe.BusinessKey, qe.DataType)
		if err != nil {
			// No store record means no status row to update either
			log.Warn("queued entity not in store",
				zap.String("business_key", qe.BusinessKey), zap.Error(err))
			continue
		}

		if !stack {
			if targetID, linked := agent.TargetID(rec); linked {
				outcomes[rec.ID] = s.linkedOutcome(ctx, agent, rec, targetID)
				continue
			}
		}

		payload, err := agent.Transform(ctx, rec)
		if err != nil {
			outcomes[rec.ID] = domain.EntityStatus{
				TargetKey: domain.PlaceholderKey,
				TxStatus:  domain.TxStatusFail,
				TxNote:    fmt.Sprintf("transform failed: %v", err),
			}
			continue
		}

		item := connector.NewEntity{EntityID: rec.ID, Payload: payload}
		if stack {
			item.TargetKey = rec.TargetKey
		}
		toInsert = append(toInsert, item)
	}

	s.insertBatch(ctx, agent, system, toInsert, outcomes)

	for id, status := range outcomes {
		if err := s.store.UpdateStatus(ctx, params.Table, id, status); err != nil {
			// Best effort: the aggregator's poll budget absorbs a lost
			// status update as `?`
			log.Error("status update failed",
				zap.String("entity_id", id), zap.Error(err))
		}
	}
	return nil
}

// linkedOutcome handles an entity that already carries a target id: either a
// cancellation passthrough or a plain re-link
func (s *Service) linkedOutcome(ctx context.Context, agent connector.BackOfficeAgent, rec *domain.EntityRecord, targetID string) domain.EntityStatus {
	if strings.EqualFold(rec.SourceStatus, canceledSourceStatus) {
		if err := agent.Cancel(ctx, targetID); err != nil {
			return domain.EntityStatus{
				TargetKey: targetID,
				TxStatus:  domain.TxStatusFail,
				TxNote:    fmt.Sprintf("cancel failed: %v", err),
			}
		}
		return domain.EntityStatus{
			TargetKey: targetID,
			TxStatus:  domain.TxStatusSuccess,
			TxNote:    fmt.Sprintf("DataWald -> %s: canceled", agent.System()),
		}
	}
	return domain.EntityStatus{
		TargetKey: targetID,
		TxStatus:  domain.TxStatusSuccess,
		TxNote:    fmt.Sprintf("DataWald -> %s", agent.System()),
	}
}

// insertBatch creates the pending payloads in the target system and folds
// per-item results into outcomes. A failed batch call fails every item in it
func (s *Service) insertBatch(ctx context.Context, agent connector.BackOfficeAgent, system string, toInsert []connector.NewEntity, outcomes map[string]domain.EntityStatus) {
	if len(toInsert) == 0 {
		return
	}

	results, err := agent.InsertBatch(ctx, toInsert)
	if err != nil {
		for _, item := range toInsert {
			outcomes[item.EntityID] = domain.EntityStatus{
				TargetKey: domain.PlaceholderKey,
				TxStatus:  domain.TxStatusFail,
				TxNote:    fmt.Sprintf("batch insert failed: %v", err),
			}
		}
		return
	}

	byID := make(map[string]connector.BatchResult, len(results))
	for _, res := range results {
		byID[res.EntityID] = res
	}

	for _, item := range toInsert {
		res, ok := byID[item.EntityID]
		if !ok {
			outcomes[item.EntityID] = domain.EntityStatus{
				TargetKey: domain.PlaceholderKey,
				TxStatus:  domain.TxStatusFail,
				TxNote:    fmt.Sprintf("no batch result from %s", system),
			}
			continue
		}
		status := domain.EntityStatus{
			TargetKey: res.TargetKey,
			TxStatus:  res.TxStatus,
			TxNote:    res.TxNote,
		}
		if status.TargetKey == "" {
			status.TargetKey = domain.PlaceholderKey
		}
		if status.TxNote == "" {
			status.TxNote = fmt.Sprintf("DataWald -> %s", system)
		}
		outcomes[item.EntityID] = status
	}
}
