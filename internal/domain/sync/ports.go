package sync

import (
	"context"
	"time"
)

// LedgerRepository persists sync runs. The secondary access pattern is "all
// runs for a task, filtered by frontend and status, newest first", which the
// cut-date resolver pages through exhaustively.
type LedgerRepository interface {
	// Save creates or replaces a run
	Save(ctx context.Context, run *SyncRun) error

	// FindByID returns a run or ErrRunNotFound
	FindByID(ctx context.Context, id string) (*SyncRun, error)

	// FindForTask returns one page of runs for (task, frontend) restricted to
	// the given statuses, newest start first. Page is 1-indexed.
	FindForTask(ctx context.Context, frontend, task string, statuses []RunStatus, page, pageSize int) ([]SyncRun, error)

	// Delete removes a run; deleting an absent run is not an error
	Delete(ctx context.Context, id string) error
}

// EntityStore is the uniform surface over the per-table entity collections.
type EntityStore interface {
	// FindByID returns a record by store id or ErrEntityNotFound
	FindByID(ctx context.Context, table, id string) (*EntityRecord, error)

	// FindByBusinessKey returns the record for (frontend, key), optionally
	// narrowed by dataType, or ErrEntityNotFound
	FindByBusinessKey(ctx context.Context, table, frontend, key, dataType string) (*EntityRecord, error)

	// Upsert applies the sighting semantics (insert, update with history,
	// or status-only touch) and returns the store id
	Upsert(ctx context.Context, rec *EntityRecord) (string, error)

	// UpdateStatus applies a partial status update to a record
	UpdateStatus(ctx context.Context, table, id string, status EntityStatus) error
}

// QueueMessage is one received work item plus the receipt handle needed to
// delete it after processing.
type QueueMessage struct {
	Handle string
	Body   []byte
}

// QueueHandle is one named, ordered, deduplicating work queue.
type QueueHandle interface {
	// Name returns the queue's name
	Name() string

	// Enqueue appends one payload under an ordering group. Identical payloads
	// within the dedup window collapse to one delivery.
	Enqueue(ctx context.Context, group string, body []byte) error

	// Depth returns the approximate total backlog: visible plus in-flight
	// plus delayed messages
	Depth(ctx context.Context) (int, error)

	// Receive returns up to max messages, making them invisible to other
	// receivers until deleted or timed out
	Receive(ctx context.Context, max int) ([]QueueMessage, error)

	// Delete removes one processed message by receipt handle
	Delete(ctx context.Context, handle string) error

	// Drop deletes the queue itself
	Drop(ctx context.Context) error
}

// WorkQueue creates and resolves per-run queues.
type WorkQueue interface {
	// Create creates (or returns the existing) ordered deduplicating queue
	Create(ctx context.Context, name string) (QueueHandle, error)

	// Resolve looks a queue up by name, returning ErrQueueNotFound when it
	// no longer exists
	Resolve(ctx context.Context, name string) (QueueHandle, error)
}

// QueuedEntity is the store projection enqueued per entity; workers resolve
// the full record back from the store by business key.
type QueuedEntity struct {
	Frontend    string `json:"frontend"`
	BusinessKey string `json:"business_key"`
	DataType    string `json:"data_type,omitempty"`
	TxStatus    string `json:"tx_status,omitempty"`
	TxNote      string `json:"tx_note,omitempty"`
}

// Command is the remote-procedure envelope handed to a task executor: which
// side runs it, which connector instance, which operation, and its
// arguments. A closed struct, not a stringly-typed map.
type Command struct {
	Area    Area
	System  string
	Subject Subject
	Params  CommandParams
}

// CommandParams are the typed arguments of a Command. Fields are used
// per-subject; unused ones stay zero.
type CommandParams struct {
	RunID      string
	Frontend   string
	BackOffice string
	Table      string
	DataType   string
	Limit      int
	Entities   []QueuedEntity
}

// TaskExecutor performs one unit of integration work. In-process it routes
// through the connector registry; deployments can swap in a remote invoker.
type TaskExecutor interface {
	// Execute runs the command synchronously
	Execute(ctx context.Context, cmd Command) error

	// ExecuteAsync schedules the command and returns immediately
	ExecuteAsync(ctx context.Context, cmd Command) error
}

// Alerter publishes unrecoverable failures out of band for operator
// visibility; it must never block or fail the calling path.
type Alerter interface {
	Alert(ctx context.Context, subject string, detail map[string]any)
}

// Clock abstracts time for the watermark flush and finalize stamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
