package sync

import (
	"reflect"
	"time"
)

// PlaceholderKey marks a target key that could not be resolved, so a later
// poll cycle re-picks the record up instead of treating it as linked.
const PlaceholderKey = "####"

// EntityRecord is one business entity (order, invoice, customer, product,
// product ext data row) as tracked by the entity store: one row per entity
// per frontend. The payload itself is opaque to the hub.
type EntityRecord struct {
	ID          string
	Table       string
	Frontend    string
	BusinessKey string
	// TargetKey is the id the record got in the target system once pushed
	TargetKey string
	// DataType qualifies product ext data rows (inventory, imagegallery, ...)
	DataType string
	TxStatus  TxStatus
	TxDt      time.Time
	TxNote    string
	// SourceStatus is the entity's own status on the source side, used for
	// insert-eligibility and cancellation passthrough (orders only today)
	SourceStatus string
	Data         map[string]any
	// History archives superseded payloads keyed by their create timestamp
	History  map[string]map[string]any
	CreateDt time.Time
	UpdateDt time.Time
}

// Stub returns the minimal projection of the record carried through the
// ledger and work queue.
func (e *EntityRecord) Stub() EntityStub {
	return EntityStub{
		EntityID:    e.ID,
		BusinessKey: e.BusinessKey,
		UpdateDt:    e.UpdateDt,
	}
}

// SameData reports whether an incoming sighting carries an identical payload,
// in which case the store performs a status-only touch instead of an update.
func (e *EntityRecord) SameData(incoming map[string]any) bool {
	return reflect.DeepEqual(e.Data, incoming)
}

// EntityStatus is the partial update applied when a worker reports an
// entity's sync outcome back to the store.
type EntityStatus struct {
	TargetKey string
	DataType  string
	TxStatus  TxStatus
	TxNote    string
}
