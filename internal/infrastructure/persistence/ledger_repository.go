package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	sync "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/persistence/models"
)

// GormLedgerRepository implements LedgerRepository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Save creates or replaces a run
func (r *GormLedgerRepository) Save(ctx context.Context, run *sync.SyncRun) error {
	model := models.SyncRunModelFromDomain(run)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// FindByID returns a run or ErrRunNotFound
func (r *GormLedgerRepository) FindByID(ctx context.Context, id string) (*sync.SyncRun, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrRunNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindForTask returns one page of runs for (task, frontend) restricted to the
// given statuses, newest start first. Page is 1-indexed
func (r *GormLedgerRepository) FindForTask(ctx context.Context, frontend, task string, statuses []sync.RunStatus, page, pageSize int) ([]sync.SyncRun, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}

	query := r.db.WithContext(ctx).
		Model(&models.SyncRunModel{}).
		Where("frontend = ? AND task = ?", frontend, task)
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		query = query.Where("status IN ?", values)
	}

	var runModels []models.SyncRunModel
	if err := query.
		Order("started_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&runModels).Error; err != nil {
		return nil, err
	}

	runs := make([]sync.SyncRun, len(runModels))
	for i := range runModels {
		runs[i] = *runModels[i].ToDomain()
	}
	return runs, nil
}

// Delete removes a run; deleting an absent run is not an error
func (r *GormLedgerRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Delete(&models.SyncRunModel{}, "id = ?", id).Error
}

var _ sync.LedgerRepository = (*GormLedgerRepository)(nil)
