package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	sync "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/persistence/models"
)

// GormEntityStore implements EntityStore using GORM. One physical table holds
// every entity collection, discriminated by the entity_table column
type GormEntityStore struct {
	db    *gorm.DB
	clock sync.Clock
}

// NewGormEntityStore creates a new GormEntityStore
func NewGormEntityStore(db *gorm.DB) *GormEntityStore {
	return &GormEntityStore{db: db, clock: sync.SystemClock{}}
}

// WithClock swaps the clock, for tests that pin tx timestamps
func (s *GormEntityStore) WithClock(clock sync.Clock) *GormEntityStore {
	s.clock = clock
	return s
}

// FindByID returns a record by store id or ErrEntityNotFound
func (s *GormEntityStore) FindByID(ctx context.Context, table, id string) (*sync.EntityRecord, error) {
	var model models.EntityRecordModel
	if err := s.db.WithContext(ctx).
		Where("entity_table = ? AND id = ?", table, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBusinessKey returns the record for (frontend, key), optionally
// narrowed by dataType, or ErrEntityNotFound
func (s *GormEntityStore) FindByBusinessKey(ctx context.Context, table, frontend, key, dataType string) (*sync.EntityRecord, error) {
	var model models.EntityRecordModel
	query := s.db.WithContext(ctx).
		Where("entity_table = ? AND frontend = ? AND business_key = ?", table, frontend, key)
	if dataType != "" {
		query = query.Where("data_type = ?", dataType)
	}
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrEntityNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert applies the sighting semantics. First sight inserts the record as
// given. A repeat sight with identical payload and unchanged source status is
// a status-only touch: N and F reopen to N, anything else parks as I. A
// changed payload (or source status) updates the row and archives the prior
// payload into history under its create timestamp
func (s *GormEntityStore) Upsert(ctx context.Context, rec *sync.EntityRecord) (string, error) {
	if rec.Table == "" || rec.Frontend == "" || rec.BusinessKey == "" {
		return "", fmt.Errorf("entity upsert needs table, frontend and business key")
	}

	now := s.clock.Now()
	var id string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.EntityRecordModel
		query := tx.Where("entity_table = ? AND frontend = ? AND business_key = ?",
			rec.Table, rec.Frontend, rec.BusinessKey)
		if rec.DataType != "" {
			query = query.Where("data_type = ?", rec.DataType)
		}
		err := query.First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			model := models.EntityRecordModelFromDomain(rec)
			if model.ID == "" {
				model.ID = uuid.NewString()
			}
			if model.TxStatus == "" {
				model.TxStatus = string(sync.TxStatusNew)
			}
			model.TxDt = now
			model.CreateDt = now
			if model.UpdateDt.IsZero() {
				model.UpdateDt = now
			}
			id = model.ID
			return tx.Create(model).Error

		case err != nil:
			return err

		default:
			id = existing.ID
			current := existing.ToDomain()

			if current.SameData(rec.Data) && current.SourceStatus == rec.SourceStatus {
				status := string(sync.TxStatusIgnored)
				if current.TxStatus == sync.TxStatusNew || current.TxStatus == sync.TxStatusFail {
					status = string(sync.TxStatusNew)
				}
				note := fmt.Sprintf("No update for %s/%s/%s.", rec.Table, rec.Frontend, rec.BusinessKey)
				return tx.Model(&models.EntityRecordModel{}).
					Where("id = ?", existing.ID).
					Updates(map[string]any{
						"tx_status": status,
						"tx_dt":     now,
						"tx_note":   note,
					}).Error
			}

			history := existing.History
			if history == nil {
				history = models.JSONHistory{}
			}
			history[existing.CreateDt.UTC().Format(sync.DtLayout)] = map[string]any(existing.Data)

			status := string(rec.TxStatus)
			if status == "" {
				status = string(sync.TxStatusNew)
			}
			updateDt := rec.UpdateDt
			if updateDt.IsZero() {
				updateDt = now
			}
			return tx.Model(&models.EntityRecordModel{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"data":          models.JSONMap(rec.Data),
					"history":       history,
					"tx_status":     status,
					"tx_dt":         now,
					"tx_note":       rec.TxNote,
					"source_status": rec.SourceStatus,
					"update_dt":     updateDt,
				}).Error
		}
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateStatus applies a partial status update to a record
func (s *GormEntityStore) UpdateStatus(ctx context.Context, table, id string, status sync.EntityStatus) error {
	updates := map[string]any{
		"tx_status": string(status.TxStatus),
		"tx_note":   status.TxNote,
		"tx_dt":     s.clock.Now(),
	}
	if status.TargetKey != "" {
		updates["target_key"] = status.TargetKey
	}

	result := s.db.WithContext(ctx).
		Model(&models.EntityRecordModel{}).
		Where("entity_table = ? AND id = ?", table, id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrEntityNotFound
	}
	return nil
}

var _ sync.EntityStore = (*GormEntityStore)(nil)
