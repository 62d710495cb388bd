package connector

import (
	"context"
	"time"

	"github.com/datawald/hub/internal/domain/sync"
)

// PullRequest describes one incremental extraction page against a source
// system: strictly-greater-than cut date plus offset pagination.
type PullRequest struct {
	Frontend string
	Table    string
	DataType string
	CutDt    time.Time
	Offset   int
	Limit    int
}

// BatchResult is the per-item outcome of a batch insert into a target
// system, keyed by the store id of the entity it belongs to.
type BatchResult struct {
	EntityID  string
	TargetKey string
	TxStatus  sync.TxStatus
	TxNote    string
}

// NewEntity is one transformed payload queued for batch creation in a
// target system. TargetKey is non-empty only in stack mode, where the same
// business key legitimately accumulates target-side documents.
type NewEntity struct {
	EntityID  string
	TargetKey string
	Payload   map[string]any
}

// BackOfficeAgent is the fixed method set every ERP/accounting connector
// implements. Push-side orchestration and producer polls depend on this
// interface only; nothing resolves connector methods by name at runtime.
type BackOfficeAgent interface {
	// System names the connector instance (NS, B1, BC, ...)
	System() string

	// TargetID extracts the already-assigned target id from a store record;
	// ok is false when the entity has never been pushed
	TargetID(rec *sync.EntityRecord) (id string, ok bool)

	// Transform maps a store record into the target system's payload
	Transform(ctx context.Context, rec *sync.EntityRecord) (map[string]any, error)

	// Cancel requests cancellation of an existing target-side document
	Cancel(ctx context.Context, targetID string) error

	// InsertBatch creates the payloads in the target system as one batch
	// call, returning a per-item outcome
	InsertBatch(ctx context.Context, items []NewEntity) ([]BatchResult, error)

	// Pull extracts one page of entities from the backoffice side
	Pull(ctx context.Context, req PullRequest) ([]sync.EntityRecord, error)

	// Count returns the source total matching the cut date at poll start
	Count(ctx context.Context, req PullRequest) (int, error)
}

// FrontEndAgent is the fixed method set every storefront connector
// implements.
type FrontEndAgent interface {
	// System names the connector instance (MAGE2, BC, SHOPIFY, ...)
	System() string

	// Sync pushes one record to the storefront and returns the assigned
	// frontend key
	Sync(ctx context.Context, rec *sync.EntityRecord) (targetKey string, err error)

	// Pull extracts one page of entities from the frontend side
	Pull(ctx context.Context, req PullRequest) ([]sync.EntityRecord, error)

	// Count returns the source total matching the cut date at poll start
	Count(ctx context.Context, req PullRequest) (int, error)
}
