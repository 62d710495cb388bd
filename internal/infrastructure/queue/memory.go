package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/datawald/hub/internal/domain/sync"
)

// contentDedupWindow mirrors the five-minute content-based deduplication
// window of FIFO queues
const contentDedupWindow = 5 * time.Minute

// MemoryWorkQueue is an in-process WorkQueue with FIFO ordering per message
// group and content-based deduplication. Single node only; it exists for
// development and tests, and as the default backend outside production
type MemoryWorkQueue struct {
	mu                sync.Mutex
	queues            map[string]*memoryQueue
	visibilityTimeout time.Duration
	clock             domain.Clock
}

// NewMemoryWorkQueue creates an empty in-memory work queue registry
func NewMemoryWorkQueue(visibilityTimeout time.Duration) *MemoryWorkQueue {
	if visibilityTimeout <= 0 {
		visibilityTimeout = 10 * time.Minute
	}
	return &MemoryWorkQueue{
		queues:            make(map[string]*memoryQueue),
		visibilityTimeout: visibilityTimeout,
		clock:             domain.SystemClock{},
	}
}

// WithClock swaps the clock, for tests that control visibility expiry
func (w *MemoryWorkQueue) WithClock(clock domain.Clock) *MemoryWorkQueue {
	w.clock = clock
	return w
}

// Create returns the named queue, creating it when absent
func (w *MemoryWorkQueue) Create(ctx context.Context, name string) (domain.QueueHandle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if q, ok := w.queues[name]; ok {
		return q, nil
	}
	q := &memoryQueue{
		name:   name,
		parent: w,
		dedup:  make(map[string]time.Time),
	}
	w.queues[name] = q
	return q, nil
}

// Resolve looks a queue up by name
func (w *MemoryWorkQueue) Resolve(ctx context.Context, name string) (domain.QueueHandle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	q, ok := w.queues[name]
	if !ok {
		return nil, domain.ErrQueueNotFound
	}
	return q, nil
}

func (w *MemoryWorkQueue) drop(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.queues, name)
}

type memMessage struct {
	handle         string
	group          string
	body           []byte
	invisibleUntil time.Time
}

type memoryQueue struct {
	name   string
	parent *MemoryWorkQueue

	mu       sync.Mutex
	messages []*memMessage
	dedup    map[string]time.Time
}

func (q *memoryQueue) Name() string { return q.name }

// Enqueue appends one payload. An identical body enqueued within the dedup
// window collapses silently, matching FIFO content-based deduplication
func (q *memoryQueue) Enqueue(ctx context.Context, group string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.parent.clock.Now()

	sum := sha256.Sum256(body)
	key := hex.EncodeToString(sum[:])
	if seen, ok := q.dedup[key]; ok && now.Sub(seen) < contentDedupWindow {
		return nil
	}
	q.dedup[key] = now

	q.messages = append(q.messages, &memMessage{
		handle: uuid.NewString(),
		group:  group,
		body:   body,
	})
	return nil
}

// Depth counts every message still owned by the queue, visible or in flight
func (q *memoryQueue) Depth(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages), nil
}

// Receive hands out up to max messages in arrival order. A group with an
// in-flight message is skipped so per-group ordering holds
func (q *memoryQueue) Receive(ctx context.Context, max int) ([]domain.QueueMessage, error) {
	if max <= 0 {
		return nil, fmt.Errorf("receive batch size must be positive, got %d", max)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.parent.clock.Now()

	inFlight := make(map[string]bool)
	for _, m := range q.messages {
		if m.invisibleUntil.After(now) {
			inFlight[m.group] = true
		}
	}

	var out []domain.QueueMessage
	taken := make(map[string]bool)
	for _, m := range q.messages {
		if len(out) >= max {
			break
		}
		if m.invisibleUntil.After(now) || inFlight[m.group] || taken[m.group] {
			continue
		}
		m.invisibleUntil = now.Add(q.parent.visibilityTimeout)
		taken[m.group] = true
		out = append(out, domain.QueueMessage{Handle: m.handle, Body: m.body})
	}
	return out, nil
}

// Delete removes one message by receipt handle; unknown handles are ignored
func (q *memoryQueue) Delete(ctx context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, m := range q.messages {
		if m.handle == handle {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

// Drop removes the queue from its registry
func (q *memoryQueue) Drop(ctx context.Context) error {
	q.parent.drop(q.name)
	return nil
}

var (
	_ domain.WorkQueue   = (*MemoryWorkQueue)(nil)
	_ domain.QueueHandle = (*memoryQueue)(nil)
)
