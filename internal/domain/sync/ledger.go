package sync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DtLayout is the timestamp layout used on the wire and in ledger watermarks.
const DtLayout = "2006-01-02 15:04:05"

// TaskDetail carries the worker-reported outcome detail for one entity.
type TaskDetail struct {
	// Note is a free-text audit line, commonly the failure trace
	Note string `json:"note,omitempty"`
	// TargetKey is the id assigned by the target system, when known
	TargetKey string `json:"target_key,omitempty"`
}

// EntityStub is the minimal projection of an entity carried inside a sync
// run and through the work queue.
type EntityStub struct {
	// EntityID is the store-assigned primary key of the entity record
	EntityID string `json:"id"`
	// BusinessKey is the frontend- or backoffice-scoped key of the entity
	// (fe_order_id, bo_invoice_id, sku, ...)
	BusinessKey string `json:"business_key"`
	// UpdateDt is the source-side last-modified timestamp of the entity
	UpdateDt time.Time `json:"update_dt"`
	// TaskStatus is the per-entity outcome, unset until a worker reports
	TaskStatus TaskStatus `json:"task_status,omitempty"`
	// TaskDetail is the outcome detail, empty until a worker reports
	TaskDetail TaskDetail `json:"task_detail,omitempty"`
}

// SyncRun is the per-run coordination record: which entities are in flight
// between one backoffice/frontend pair, and how the run ended. It references
// entities by store id but does not own them; once finalized and its
// watermark absorbed it is disposable.
type SyncRun struct {
	ID         string
	BackOffice string
	Frontend   string
	Task       string
	Table      string
	Status     RunStatus
	StartedAt  time.Time
	EndedAt    *time.Time
	CutDt      time.Time
	Offset     int
	StoreCode  string
	Note       string
	Entities   []EntityStub
}

// NewSyncRun creates a run in Processing state with a fresh time-ordered id.
// Callers must not persist a run with an empty entity list; the control
// service drops those before they reach here.
func NewSyncRun(backoffice, frontend, task, table string, mark Watermark, storeCode string, entities []EntityStub) (*SyncRun, error) {
	if len(entities) == 0 {
		return nil, ErrEmptyRun
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("sync: generate run id: %w", err)
	}
	return &SyncRun{
		ID:         id.String(),
		BackOffice: backoffice,
		Frontend:   frontend,
		Task:       task,
		Table:      table,
		Status:     RunStatusProcessing,
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		CutDt:      mark.CutDt,
		Offset:     mark.Offset,
		StoreCode:  storeCode,
		Note:       fmt.Sprintf("Process task(%s) for frontend(%s).", task, frontend),
		Entities:   entities,
	}, nil
}

// Watermark returns the run's incremental-extraction watermark.
func (r *SyncRun) Watermark() Watermark {
	return Watermark{CutDt: r.CutDt, Offset: r.Offset}
}

// QueueName derives the deterministic per-run work queue name, truncated to
// a platform-safe length and suffixed to mark it ordered/deduplicating.
func (r *SyncRun) QueueName() string {
	name := fmt.Sprintf("%s_%s_%s_%s", r.BackOffice, r.Frontend, r.Table, r.ID)
	if len(name) > 75 {
		name = name[:75]
	}
	return name + ".fifo"
}

// MergeResults folds worker-reported stubs into the run's entity list,
// matching by store id. Stubs for unknown ids are dropped; entities with no
// incoming result keep whatever status they had.
func (r *SyncRun) MergeResults(results []EntityStub) {
	byID := make(map[string]EntityStub, len(results))
	for _, res := range results {
		byID[res.EntityID] = res
	}
	for i := range r.Entities {
		if res, ok := byID[r.Entities[i].EntityID]; ok {
			r.Entities[i].TaskStatus = res.TaskStatus
			r.Entities[i].TaskDetail = res.TaskDetail
		}
	}
}

// Finalize merges the reported results, derives the terminal status and
// stamps the end time. It is the caller's responsibility to invoke this only
// once every expected entity has been resolved.
func (r *SyncRun) Finalize(results []EntityStub, now time.Time) {
	r.MergeResults(results)
	r.Status = DeriveRunStatus(r.Entities)
	ended := now.UTC().Truncate(time.Second)
	r.EndedAt = &ended
}

// PendingEntities returns the stubs whose task status is not a terminal
// success. Re-sync re-queues exactly these.
func (r *SyncRun) PendingEntities() []EntityStub {
	var pending []EntityStub
	for _, e := range r.Entities {
		if e.TaskStatus != TaskStatusSuccess && e.TaskStatus != TaskStatusIgnored {
			pending = append(pending, e)
		}
	}
	return pending
}
