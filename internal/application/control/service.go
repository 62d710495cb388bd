// Package control implements the sync-control plane: the run ledger, the
// cut-date resolver, dispatch onto per-run work queues, queue draining and
// run finalization.
package control

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/logger"
)

// Config carries the control-plane tunables
type Config struct {
	// DefaultCutDt is the cold-start watermark for pairs with no history
	DefaultCutDt time.Time
	// FlushGrace protects recently completed runs from the watermark flush
	FlushGrace time.Duration
	// LedgerPageSize is the page size for exhaustive ledger scans
	LedgerPageSize int
}

// Service is the sync-control application service
type Service struct {
	ledger     domain.LedgerRepository
	store      domain.EntityStore
	dispatcher *Dispatcher
	clock      domain.Clock
	logger     *zap.Logger
	cfg        Config
}

// NewService wires the control service
func NewService(ledger domain.LedgerRepository, store domain.EntityStore, dispatcher *Dispatcher, clock domain.Clock, log *zap.Logger, cfg Config) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.LedgerPageSize <= 0 {
		cfg.LedgerPageSize = 100
	}
	if cfg.FlushGrace <= 0 {
		cfg.FlushGrace = 5 * time.Minute
	}
	return &Service{
		ledger:     ledger,
		store:      store,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     log,
		cfg:        cfg,
	}
}

// CreateRunInput describes one dispatch request.
type CreateRunInput struct {
	BackOffice string
	Frontend   string
	Task       string
	Table      string
	CutDt      time.Time
	Offset     int
	StoreCode  string
	Entities   []domain.EntityStub
}

// CreateSyncRun records a new run and dispatches its entities onto a work
// queue. A request with no entities is a logged no-op: nothing is persisted
// and nil is returned
func (s *Service) CreateSyncRun(ctx context.Context, in CreateRunInput) (*domain.SyncRun, error) {
	if len(in.Entities) == 0 {
		s.logger.Info("no entities to sync, skipping run",
			logger.Task(in.Task), logger.Frontend(in.Frontend))
		return nil, nil
	}

	run, err := domain.NewSyncRun(in.BackOffice, in.Frontend, in.Task, in.Table,
		domain.Watermark{CutDt: in.CutDt, Offset: in.Offset}, in.StoreCode, in.Entities)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save sync run: %w", err)
	}

	s.logger.Info("sync run created",
		logger.RunID(run.ID), logger.Task(run.Task),
		logger.Frontend(run.Frontend), logger.BackOffice(run.BackOffice),
		zap.Int("entities", len(run.Entities)))

	if err := s.dispatcher.Dispatch(ctx, run); err != nil {
		return nil, fmt.Errorf("dispatch run %s: %w", run.ID, err)
	}
	return run, nil
}

// GetSyncRun returns one run by id
func (s *Service) GetSyncRun(ctx context.Context, id string) (*domain.SyncRun, error) {
	return s.ledger.FindByID(ctx, id)
}

// UpdateSyncRun folds reported entity results into the run, derives its
// terminal status and stamps the end time
func (s *Service) UpdateSyncRun(ctx context.Context, id string, results []domain.EntityStub) (*domain.SyncRun, error) {
	run, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Finalize(results, s.clock.Now())
	if err := s.ledger.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save finalized run: %w", err)
	}
	return run, nil
}

// DeleteSyncRun removes one run from the ledger
func (s *Service) DeleteSyncRun(ctx context.Context, id string) error {
	return s.ledger.Delete(ctx, id)
}

// cutDtStatuses are the run states whose watermark is trustworthy input to
// the resolver. Every state counts: a Processing run already claimed its
// extraction range
var cutDtStatuses = []domain.RunStatus{
	domain.RunStatusCompleted,
	domain.RunStatusFail,
	domain.RunStatusIncompleted,
	domain.RunStatusProcessing,
}

// GetCutDt resolves the incremental-extraction watermark for one
// (frontend, task) pair and flushes absorbed completed runs. Cold start
// returns the configured default cut date with offset zero
func (s *Service) GetCutDt(ctx context.Context, frontend, task string) (domain.Watermark, error) {
	var all []domain.SyncRun
	for page := 1; ; page++ {
		runs, err := s.ledger.FindForTask(ctx, frontend, task, cutDtStatuses, page, s.cfg.LedgerPageSize)
		if err != nil {
			return domain.Watermark{}, fmt.Errorf("page ledger for cut date: %w", err)
		}
		all = append(all, runs...)
		if len(runs) < s.cfg.LedgerPageSize {
			break
		}
	}

	latest, ok := domain.SelectLatest(all)
	if !ok {
		return domain.Watermark{CutDt: s.cfg.DefaultCutDt, Offset: 0}, nil
	}

	for _, id := range domain.FlushCandidates(all, latest.ID, s.clock.Now(), s.cfg.FlushGrace) {
		if err := s.ledger.Delete(ctx, id); err != nil {
			// Flush is housekeeping; a failed delete only means the row is
			// reconsidered next time
			s.logger.Warn("failed to flush absorbed run",
				logger.RunID(id), logger.Task(task), zap.Error(err))
		}
	}

	return latest.Watermark(), nil
}

// TaskState is the readiness answer for one entity within a sync task.
type TaskState struct {
	Ready      bool
	TaskStatus domain.TaskStatus
	Note       string
	TargetKey  string
}

// GetTask reports whether one entity has reached a reportable outcome. An
// entity still marked N or P is not ready
func (s *Service) GetTask(ctx context.Context, table, id string) (TaskState, error) {
	rec, err := s.store.FindByID(ctx, table, id)
	if err != nil {
		return TaskState{}, err
	}
	if !rec.TxStatus.Ready() {
		return TaskState{Ready: false}, nil
	}
	return TaskState{
		Ready:      true,
		TaskStatus: domain.TaskStatus(rec.TxStatus),
		Note:       rec.TxNote,
		TargetKey:  rec.TargetKey,
	}, nil
}

// taskDataType extracts the ext-data qualifier from a products task name
// (products-inventory -> inventory). The customers-bo/customers-fe suffixes
// are direction markers, not data types
func taskDataType(task string) string {
	if !strings.HasPrefix(task, "products-") {
		return ""
	}
	return strings.TrimPrefix(task, "products-")
}
