package sync

import "errors"

var (
	// ErrEmptyRun rejects persisting a sync run with no entities; no-op runs
	// are dropped, never recorded
	ErrEmptyRun = errors.New("sync: run has no entities")
	// ErrRunNotFound is returned for lookups of unknown run ids
	ErrRunNotFound = errors.New("sync: run not found")
	// ErrEntityNotFound is returned for lookups of unknown entity records
	ErrEntityNotFound = errors.New("sync: entity not found")
	// ErrUnknownTable is returned for tables outside the closed registry
	ErrUnknownTable = errors.New("sync: unknown table")
	// ErrQueueNotFound marks a drain invocation against a queue that no
	// longer exists; the caller treats it as a stale duplicate
	ErrQueueNotFound = errors.New("sync: work queue not found")
)
