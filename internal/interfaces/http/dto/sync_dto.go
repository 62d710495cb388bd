package dto

import (
	"time"

	domain "github.com/datawald/hub/internal/domain/sync"
)

// EntityStubRequest is one entity reference inside a run request
type EntityStubRequest struct {
	EntityID    string    `json:"id" binding:"required"`
	BusinessKey string    `json:"business_key" binding:"required"`
	UpdateDt    time.Time `json:"update_dt"`
	TaskStatus  string    `json:"task_status"`
	Note        string    `json:"note"`
	TargetKey   string    `json:"target_key"`
}

// CreateRunRequest creates and dispatches a sync run
type CreateRunRequest struct {
	BackOffice string              `json:"backoffice" binding:"required"`
	Frontend   string              `json:"frontend" binding:"required"`
	Task       string              `json:"task" binding:"required"`
	Table      string              `json:"table" binding:"required"`
	CutDt      string              `json:"cut_dt"`
	Offset     int                 `json:"offset" binding:"min=0"`
	StoreCode  string              `json:"store_code"`
	Entities   []EntityStubRequest `json:"entities"`
}

// UpdateRunRequest reports per-entity outcomes into a run
type UpdateRunRequest struct {
	Entities []EntityStubRequest `json:"entities" binding:"required,min=1"`
}

// RunResponse is the API projection of a sync run
type RunResponse struct {
	ID         string              `json:"id"`
	BackOffice string              `json:"backoffice"`
	Frontend   string              `json:"frontend"`
	Task       string              `json:"task"`
	Table      string              `json:"table"`
	Status     string              `json:"status"`
	StartedAt  time.Time           `json:"started_at"`
	EndedAt    *time.Time          `json:"ended_at,omitempty"`
	CutDt      string              `json:"cut_dt"`
	Offset     int                 `json:"offset"`
	StoreCode  string              `json:"store_code,omitempty"`
	Note       string              `json:"note,omitempty"`
	Entities   []EntityStubRequest `json:"entities"`
}

// NewRunResponse maps a domain run to its API projection
func NewRunResponse(run *domain.SyncRun) RunResponse {
	resp := RunResponse{
		ID:         run.ID,
		BackOffice: run.BackOffice,
		Frontend:   run.Frontend,
		Task:       run.Task,
		Table:      run.Table,
		Status:     run.Status.String(),
		StartedAt:  run.StartedAt,
		EndedAt:    run.EndedAt,
		CutDt:      run.CutDt.Format(domain.DtLayout),
		Offset:     run.Offset,
		StoreCode:  run.StoreCode,
		Note:       run.Note,
	}
	for _, e := range run.Entities {
		resp.Entities = append(resp.Entities, EntityStubRequest{
			EntityID:    e.EntityID,
			BusinessKey: e.BusinessKey,
			UpdateDt:    e.UpdateDt,
			TaskStatus:  string(e.TaskStatus),
			Note:        e.TaskDetail.Note,
			TargetKey:   e.TaskDetail.TargetKey,
		})
	}
	return resp
}

// CutDtResponse is the resolved watermark for one (frontend, task) pair
type CutDtResponse struct {
	Frontend string `json:"frontend"`
	Task     string `json:"task"`
	CutDt    string `json:"cut_dt"`
	Offset   int    `json:"offset"`
}

// TaskStateResponse reports one entity's readiness inside a sync task
type TaskStateResponse struct {
	Ready      bool   `json:"ready"`
	TaskStatus string `json:"task_status,omitempty"`
	Note       string `json:"note,omitempty"`
	TargetKey  string `json:"target_key,omitempty"`
}

// UpsertEntityRequest records one source-side sighting of an entity
type UpsertEntityRequest struct {
	Frontend     string         `json:"frontend" binding:"required"`
	BusinessKey  string         `json:"business_key" binding:"required"`
	DataType     string         `json:"data_type"`
	SourceStatus string         `json:"source_status"`
	TxNote       string         `json:"tx_note"`
	Data         map[string]any `json:"data" binding:"required"`
}

// UpdateEntityStatusRequest applies a worker-reported outcome to an entity
type UpdateEntityStatusRequest struct {
	TargetKey string `json:"target_key"`
	TxStatus  string `json:"tx_status" binding:"required,oneof=N P I F S"`
	TxNote    string `json:"tx_note"`
}

// EntityResponse is the API projection of an entity record
type EntityResponse struct {
	ID           string         `json:"id"`
	Table        string         `json:"table"`
	Frontend     string         `json:"frontend"`
	BusinessKey  string         `json:"business_key"`
	TargetKey    string         `json:"target_key,omitempty"`
	DataType     string         `json:"data_type,omitempty"`
	TxStatus     string         `json:"tx_status"`
	TxDt         time.Time      `json:"tx_dt"`
	TxNote       string         `json:"tx_note,omitempty"`
	SourceStatus string         `json:"source_status,omitempty"`
	Data         map[string]any `json:"data"`
	CreateDt     time.Time      `json:"create_dt"`
	UpdateDt     time.Time      `json:"update_dt"`
}

// NewEntityResponse maps a domain record to its API projection
func NewEntityResponse(rec *domain.EntityRecord) EntityResponse {
	return EntityResponse{
		ID:           rec.ID,
		Table:        rec.Table,
		Frontend:     rec.Frontend,
		BusinessKey:  rec.BusinessKey,
		TargetKey:    rec.TargetKey,
		DataType:     rec.DataType,
		TxStatus:     string(rec.TxStatus),
		TxDt:         rec.TxDt,
		TxNote:       rec.TxNote,
		SourceStatus: rec.SourceStatus,
		Data:         rec.Data,
		CreateDt:     rec.CreateDt,
		UpdateDt:     rec.UpdateDt,
	}
}

// PollRequest triggers one producer extraction cycle
type PollRequest struct {
	BackOffice string `json:"backoffice" binding:"required"`
	Frontend   string `json:"frontend" binding:"required"`
	Table      string `json:"table" binding:"required"`
	StoreCode  string `json:"store_code"`
	Limit      int    `json:"limit" binding:"min=0"`
}

// FeedRequest carries raw ext-data rows for shaping and ingestion
type FeedRequest struct {
	Frontend string           `json:"frontend" binding:"required"`
	Rows     []map[string]any `json:"rows" binding:"required,min=1"`
}
