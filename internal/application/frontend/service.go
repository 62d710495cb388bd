// Package frontend implements the storefront-facing sync: records collected
// from a backoffice are pushed to a frontend system one at a time, and their
// outcomes reported back to the entity store.
package frontend

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/datawald/hub/internal/domain/connector"
	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/logger"
)

// syncPayload is the minimum a record must carry before it is worth a
// round trip to the storefront
type syncPayload struct {
	BusinessKey string         `validate:"required"`
	Data        map[string]any `validate:"required,min=1"`
}

// Service is the frontend-facing application service
type Service struct {
	registry *connector.Registry
	store    domain.EntityStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService wires the frontend-facing service
func NewService(registry *connector.Registry, store domain.EntityStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		registry: registry,
		store:    store,
		validate: validator.New(),
		logger:   log,
	}
}

// SyncEntities pushes one batch of queued entities to the named frontend
// system. Every resolvable entity receives exactly one status update; a
// single entity's failure never aborts the rest of the batch
func (s *Service) SyncEntities(ctx context.Context, system string, params domain.CommandParams) error {
	agent, err := s.registry.FrontEnd(system)
	if err != nil {
		return err
	}

	log := s.logger.With(logger.Table(params.Table), logger.Frontend(system))

	for _, qe := range params.Entities {
		rec, err := s.store.FindByBusinessKey(ctx, params.Table, qe.Frontend, qe.BusinessKey, qe.DataType)
		if err != nil {
			log.Warn("queued entity not in store",
				zap.String("business_key", qe.BusinessKey), zap.Error(err))
			continue
		}

		status := s.syncOne(ctx, agent, rec)
		if err := s.store.UpdateStatus(ctx, params.Table, rec.ID, status); err != nil {
			log.Error("status update failed",
				zap.String("entity_id", rec.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) syncOne(ctx context.Context, agent connector.FrontEndAgent, rec *domain.EntityRecord) domain.EntityStatus {
	payload := syncPayload{BusinessKey: rec.BusinessKey, Data: rec.Data}
	if err := s.validate.Struct(payload); err != nil {
		return domain.EntityStatus{
			TargetKey: domain.PlaceholderKey,
			TxStatus:  domain.TxStatusFail,
			TxNote:    fmt.Sprintf("invalid record: %v", err),
		}
	}

	targetKey, err := agent.Sync(ctx, rec)
	if err != nil {
		return domain.EntityStatus{
			TargetKey: domain.PlaceholderKey,
			TxStatus:  domain.TxStatusFail,
			TxNote:    fmt.Sprintf("sync failed: %v", err),
		}
	}
	return domain.EntityStatus{
		TargetKey: targetKey,
		TxStatus:  domain.TxStatusSuccess,
		TxNote:    fmt.Sprintf("DataWald -> %s", agent.System()),
	}
}
