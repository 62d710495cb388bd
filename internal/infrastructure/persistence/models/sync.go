package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	sync "github.com/datawald/hub/internal/domain/sync"
)

// JSONMap stores an opaque JSON object column
type JSONMap map[string]any

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(value any) error {
	return scanJSON(value, m)
}

// JSONHistory stores the archived-payloads column: payloads keyed by their
// create timestamp
type JSONHistory map[string]map[string]any

// Value implements driver.Valuer
func (h JSONHistory) Value() (driver.Value, error) {
	if h == nil {
		return nil, nil
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner
func (h *JSONHistory) Scan(value any) error {
	return scanJSON(value, h)
}

// EntityStubList stores a run's entity projection column
type EntityStubList []sync.EntityStub

// Value implements driver.Valuer
func (l EntityStubList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]sync.EntityStub{})
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *EntityStubList) Scan(value any) error {
	return scanJSON(value, l)
}

func scanJSON(value, dest any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	}
	return fmt.Errorf("unsupported JSON column type %T", value)
}

// SyncRunModel is the persistence model for one sync run
type SyncRunModel struct {
	ID          string     `gorm:"type:uuid;primaryKey"`
	BackOffice  string     `gorm:"size:64;not null"`
	Frontend    string     `gorm:"size:64;not null;index:idx_sync_runs_task,priority:1"`
	Task        string     `gorm:"size:64;not null;index:idx_sync_runs_task,priority:2"`
	TargetTable string     `gorm:"size:64;not null"`
	Status      string     `gorm:"size:16;not null;index"`
	StartedAt   time.Time  `gorm:"not null;index"`
	EndedAt     *time.Time
	CutDt       time.Time `gorm:"not null"`
	SyncOffset  int        `gorm:"not null;default:0"`
	StoreCode   string     `gorm:"size:32"`
	Note        string     `gorm:"type:text"`
	Entities    EntityStubList `gorm:"type:jsonb;not null"`
}

// TableName overrides the table name
func (SyncRunModel) TableName() string { return "sync_runs" }

// ToDomain converts the model to a domain sync run
func (m *SyncRunModel) ToDomain() *sync.SyncRun {
	return &sync.SyncRun{
		ID:         m.ID,
		BackOffice: m.BackOffice,
		Frontend:   m.Frontend,
		Task:       m.Task,
		Table:      m.TargetTable,
		Status:     sync.RunStatus(m.Status),
		StartedAt:  m.StartedAt,
		EndedAt:    m.EndedAt,
		CutDt:      m.CutDt,
		Offset:     m.SyncOffset,
		StoreCode:  m.StoreCode,
		Note:       m.Note,
		Entities:   append([]sync.EntityStub(nil), m.Entities...),
	}
}

// SyncRunModelFromDomain builds the model from a domain sync run
func SyncRunModelFromDomain(run *sync.SyncRun) *SyncRunModel {
	return &SyncRunModel{
		ID:          run.ID,
		BackOffice:  run.BackOffice,
		Frontend:    run.Frontend,
		Task:        run.Task,
		TargetTable: run.Table,
		Status:      string(run.Status),
		StartedAt:   run.StartedAt,
		EndedAt:     run.EndedAt,
		CutDt:       run.CutDt,
		SyncOffset:  run.Offset,
		StoreCode:   run.StoreCode,
		Note:        run.Note,
		Entities:    EntityStubList(run.Entities),
	}
}

// EntityRecordModel is the persistence model for one tracked business entity.
// All entity tables share one physical table discriminated by entity_table
type EntityRecordModel struct {
	ID           string      `gorm:"type:uuid;primaryKey"`
	EntityTable  string      `gorm:"size:64;not null;uniqueIndex:idx_entities_key,priority:1"`
	Frontend     string      `gorm:"size:64;not null;uniqueIndex:idx_entities_key,priority:2"`
	BusinessKey  string      `gorm:"size:255;not null;uniqueIndex:idx_entities_key,priority:3"`
	DataType     string      `gorm:"size:32;not null;default:'';uniqueIndex:idx_entities_key,priority:4"`
	TargetKey    string      `gorm:"size:255"`
	TxStatus     string      `gorm:"size:8;not null;index"`
	TxDt         time.Time   `gorm:"not null"`
	TxNote       string      `gorm:"type:text"`
	SourceStatus string      `gorm:"size:64"`
	Data         JSONMap     `gorm:"type:jsonb"`
	History      JSONHistory `gorm:"type:jsonb"`
	CreateDt     time.Time   `gorm:"not null"`
	UpdateDt     time.Time   `gorm:"not null;index"`
}

// TableName overrides the table name
func (EntityRecordModel) TableName() string { return "entities" }

// ToDomain converts the model to a domain entity record
func (m *EntityRecordModel) ToDomain() *sync.EntityRecord {
	return &sync.EntityRecord{
		ID:           m.ID,
		Table:        m.EntityTable,
		Frontend:     m.Frontend,
		BusinessKey:  m.BusinessKey,
		TargetKey:    m.TargetKey,
		DataType:     m.DataType,
		TxStatus:     sync.TxStatus(m.TxStatus),
		TxDt:         m.TxDt,
		TxNote:       m.TxNote,
		SourceStatus: m.SourceStatus,
		Data:         map[string]any(m.Data),
		History:      map[string]map[string]any(m.History),
		CreateDt:     m.CreateDt,
		UpdateDt:     m.UpdateDt,
	}
}

// EntityRecordModelFromDomain builds the model from a domain entity record
func EntityRecordModelFromDomain(rec *sync.EntityRecord) *EntityRecordModel {
	return &EntityRecordModel{
		ID:           rec.ID,
		EntityTable:  rec.Table,
		Frontend:     rec.Frontend,
		BusinessKey:  rec.BusinessKey,
		DataType:     rec.DataType,
		TargetKey:    rec.TargetKey,
		TxStatus:     string(rec.TxStatus),
		TxDt:         rec.TxDt,
		TxNote:       rec.TxNote,
		SourceStatus: rec.SourceStatus,
		Data:         JSONMap(rec.Data),
		History:      JSONHistory(rec.History),
		CreateDt:     rec.CreateDt,
		UpdateDt:     rec.UpdateDt,
	}
}
