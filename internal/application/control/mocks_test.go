package control

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	domain "github.com/datawald/hub/internal/domain/sync"
)

// MockLedgerRepository implements sync.LedgerRepository for testing
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Save(ctx context.Context, run *domain.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindByID(ctx context.Context, id string) (*domain.SyncRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncRun), args.Error(1)
}

func (m *MockLedgerRepository) FindForTask(ctx context.Context, frontend, task string, statuses []domain.RunStatus, page, pageSize int) ([]domain.SyncRun, error) {
	args := m.Called(ctx, frontend, task, statuses, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncRun), args.Error(1)
}

func (m *MockLedgerRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEntityStore implements sync.EntityStore for testing
type MockEntityStore struct {
	mock.Mock
}

func (m *MockEntityStore) FindByID(ctx context.Context, table, id string) (*domain.EntityRecord, error) {
	args := m.Called(ctx, table, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EntityRecord), args.Error(1)
}

func (m *MockEntityStore) FindByBusinessKey(ctx context.Context, table, frontend, key, dataType string) (*domain.EntityRecord, error) {
	args := m.Called(ctx, table, frontend, key, dataType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EntityRecord), args.Error(1)
}

func (m *MockEntityStore) Upsert(ctx context.Context, rec *domain.EntityRecord) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *MockEntityStore) UpdateStatus(ctx context.Context, table, id string, status domain.EntityStatus) error {
	args := m.Called(ctx, table, id, status)
	return args.Error(0)
}

// MockExecutor implements sync.TaskExecutor for testing
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, cmd domain.Command) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MockExecutor) ExecuteAsync(ctx context.Context, cmd domain.Command) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

// MockAlerter implements sync.Alerter for testing
type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) Alert(ctx context.Context, subject string, detail map[string]any) {
	m.Called(ctx, subject, detail)
}

// MockQueueHandle implements sync.QueueHandle for testing
type MockQueueHandle struct {
	mock.Mock
}

func (m *MockQueueHandle) Name() string {
	return m.Called().String(0)
}

func (m *MockQueueHandle) Enqueue(ctx context.Context, group string, body []byte) error {
	args := m.Called(ctx, group, body)
	return args.Error(0)
}

func (m *MockQueueHandle) Depth(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockQueueHandle) Receive(ctx context.Context, max int) ([]domain.QueueMessage, error) {
	args := m.Called(ctx, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QueueMessage), args.Error(1)
}

func (m *MockQueueHandle) Delete(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

func (m *MockQueueHandle) Drop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockWorkQueue implements sync.WorkQueue for testing
type MockWorkQueue struct {
	mock.Mock
}

func (m *MockWorkQueue) Create(ctx context.Context, name string) (domain.QueueHandle, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.QueueHandle), args.Error(1)
}

func (m *MockWorkQueue) Resolve(ctx context.Context, name string) (domain.QueueHandle, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.QueueHandle), args.Error(1)
}

// stubClock pins time for deterministic assertions
type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time { return c.now }
