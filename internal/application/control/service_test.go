package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
)

func testRun(t *testing.T, entities []domain.EntityStub) *domain.SyncRun {
	t.Helper()
	run, err := domain.NewSyncRun("ns", "mage2", "orders", "orders",
		domain.Watermark{CutDt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, "store-1", entities)
	require.NoError(t, err)
	return run
}

func stubs(ids ...string) []domain.EntityStub {
	out := make([]domain.EntityStub, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.EntityStub{EntityID: id, BusinessKey: "key-" + id})
	}
	return out
}

func TestCreateSyncRunEmptyIsNoOp(t *testing.T) {
	ledger := new(MockLedgerRepository)
	store := new(MockEntityStore)
	svc := NewService(ledger, store, nil, nil, zap.NewNop(), Config{})

	run, err := svc.CreateSyncRun(context.Background(), CreateRunInput{
		BackOffice: "ns",
		Frontend:   "mage2",
		Task:       "orders",
		Table:      "orders",
	})

	require.NoError(t, err)
	assert.Nil(t, run)
	ledger.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateSyncRunPersistsAndDispatches(t *testing.T) {
	ledger := new(MockLedgerRepository)
	store := new(MockEntityStore)
	queue := new(MockWorkQueue)
	handle := new(MockQueueHandle)
	sup := newIdleSupervisor(queue)
	dispatcher := NewDispatcher(queue, store, sup, zap.NewNop())
	svc := NewService(ledger, store, dispatcher, nil, zap.NewNop(), Config{})

	ledger.On("Save", mock.Anything, mock.AnythingOfType("*sync.SyncRun")).Return(nil)
	queue.On("Create", mock.Anything, mock.AnythingOfType("string")).Return(handle, nil)
	store.On("FindByID", mock.Anything, "orders", "e1").Return(&domain.EntityRecord{
		ID: "e1", Table: "orders", Frontend: "mage2", BusinessKey: "1001",
		TxStatus: domain.TxStatusNew,
	}, nil)
	handle.On("Enqueue", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil)

	// Canceled context: the drain workers spawn and exit without a pass
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := svc.CreateSyncRun(ctx, CreateRunInput{
		BackOffice: "ns",
		Frontend:   "mage2",
		Task:       "orders",
		Table:      "orders",
		CutDt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Entities:   stubs("e1"),
	})

	require.NoError(t, err)
	require.NotNil(t, run)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, domain.RunStatusProcessing, run.Status)
	assert.Equal(t, "orders", run.Table)
	ledger.AssertExpectations(t)
	queue.AssertExpectations(t)
	handle.AssertExpectations(t)
	sup.Stop()
}

func TestCreateSyncRunDispatchFailureBubbles(t *testing.T) {
	ledger := new(MockLedgerRepository)
	store := new(MockEntityStore)
	queue := new(MockWorkQueue)
	dispatcher := NewDispatcher(queue, store, newIdleSupervisor(queue), zap.NewNop())
	svc := NewService(ledger, store, dispatcher, nil, zap.NewNop(), Config{})

	ledger.On("Save", mock.Anything, mock.Anything).Return(nil)
	queue.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("queue backend down"))

	run, err := svc.CreateSyncRun(context.Background(), CreateRunInput{
		BackOffice: "ns", Frontend: "mage2", Task: "orders", Table: "orders",
		Entities: stubs("e1"),
	})

	require.Error(t, err)
	assert.Nil(t, run)
	assert.Contains(t, err.Error(), "dispatch run")
}

func TestUpdateSyncRunDerivesStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]domain.TaskStatus
		want    domain.RunStatus
	}{
		{
			name:    "all success completes",
			results: map[string]domain.TaskStatus{"e1": domain.TaskStatusSuccess, "e2": domain.TaskStatusIgnored},
			want:    domain.RunStatusCompleted,
		},
		{
			name:    "one failure fails the run",
			results: map[string]domain.TaskStatus{"e1": domain.TaskStatusSuccess, "e2": domain.TaskStatusFail},
			want:    domain.RunStatusFail,
		},
		{
			name:    "unknown outcome leaves the run incompleted",
			results: map[string]domain.TaskStatus{"e1": domain.TaskStatusSuccess, "e2": domain.TaskStatusUnknown},
			want:    domain.RunStatusIncompleted,
		},
		{
			name:    "silent entity leaves the run incompleted",
			results: map[string]domain.TaskStatus{"e1": domain.TaskStatusSuccess},
			want:    domain.RunStatusIncompleted,
		},
		{
			name:    "failure wins over unknown",
			results: map[string]domain.TaskStatus{"e1": domain.TaskStatusUnknown, "e2": domain.TaskStatusFail},
			want:    domain.RunStatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := testRun(t, stubs("e1", "e2"))
			ledger := new(MockLedgerRepository)
			ledger.On("FindByID", mock.Anything, run.ID).Return(run, nil)
			ledger.On("Save", mock.Anything, run).Return(nil)

			now := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
			svc := NewService(ledger, new(MockEntityStore), nil, stubClock{now: now}, zap.NewNop(), Config{})

			var results []domain.EntityStub
			for id, st := range tt.results {
				results = append(results, domain.EntityStub{EntityID: id, TaskStatus: st})
			}

			got, err := svc.UpdateSyncRun(context.Background(), run.ID, results)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			require.NotNil(t, got.EndedAt)
			assert.Equal(t, now, *got.EndedAt)
		})
	}
}

func TestGetCutDtColdStart(t *testing.T) {
	defaultCut := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	ledger := new(MockLedgerRepository)
	ledger.On("FindForTask", mock.Anything, "mage2", "orders", cutDtStatuses, 1, 100).
		Return([]domain.SyncRun{}, nil)

	svc := NewService(ledger, new(MockEntityStore), nil, nil, zap.NewNop(), Config{DefaultCutDt: defaultCut})

	mark, err := svc.GetCutDt(context.Background(), "mage2", "orders")
	require.NoError(t, err)
	assert.Equal(t, defaultCut, mark.CutDt)
	assert.Zero(t, mark.Offset)
}

func TestGetCutDtIgnoresStaleProcessingRun(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	runs := []domain.SyncRun{
		// A hung Processing run with an old watermark must not win
		{ID: "stale", Status: domain.RunStatusProcessing, CutDt: older, Offset: 0, StartedAt: now.Add(-time.Minute)},
		{ID: "latest", Status: domain.RunStatusCompleted, CutDt: newer, Offset: 3, StartedAt: now.Add(-2 * time.Minute)},
	}

	ledger := new(MockLedgerRepository)
	ledger.On("FindForTask", mock.Anything, "mage2", "orders", cutDtStatuses, 1, 100).Return(runs, nil)

	svc := NewService(ledger, new(MockEntityStore), nil, stubClock{now: now}, zap.NewNop(), Config{})

	mark, err := svc.GetCutDt(context.Background(), "mage2", "orders")
	require.NoError(t, err)
	assert.Equal(t, newer, mark.CutDt)
	assert.Equal(t, 3, mark.Offset)
	ledger.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestGetCutDtFlushesAbsorbedRuns(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

	runs := []domain.SyncRun{
		{ID: "old-done", Status: domain.RunStatusCompleted,
			CutDt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), StartedAt: now.Add(-time.Hour)},
		{ID: "fresh-done", Status: domain.RunStatusCompleted,
			CutDt: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), StartedAt: now.Add(-time.Minute)},
		{ID: "latest", Status: domain.RunStatusCompleted,
			CutDt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), StartedAt: now.Add(-2 * time.Hour)},
	}

	ledger := new(MockLedgerRepository)
	ledger.On("FindForTask", mock.Anything, "mage2", "orders", cutDtStatuses, 1, 100).Return(runs, nil)
	ledger.On("Delete", mock.Anything, "old-done").Return(nil)

	svc := NewService(ledger, new(MockEntityStore), nil, stubClock{now: now}, zap.NewNop(),
		Config{FlushGrace: 5 * time.Minute})

	mark, err := svc.GetCutDt(context.Background(), "mage2", "orders")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), mark.CutDt)

	// The winner survives even though it started hours ago; the recently
	// finished run is inside the grace window
	ledger.AssertCalled(t, "Delete", mock.Anything, "old-done")
	ledger.AssertNotCalled(t, "Delete", mock.Anything, "latest")
	ledger.AssertNotCalled(t, "Delete", mock.Anything, "fresh-done")
}

func TestGetCutDtPagesExhaustively(t *testing.T) {
	pageOne := []domain.SyncRun{
		{ID: "a", Status: domain.RunStatusCompleted, CutDt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), StartedAt: time.Now()},
		{ID: "b", Status: domain.RunStatusCompleted, CutDt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), StartedAt: time.Now()},
	}
	pageTwo := []domain.SyncRun{
		{ID: "c", Status: domain.RunStatusCompleted, CutDt: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), StartedAt: time.Now()},
	}

	ledger := new(MockLedgerRepository)
	ledger.On("FindForTask", mock.Anything, "mage2", "orders", cutDtStatuses, 1, 2).Return(pageOne, nil)
	ledger.On("FindForTask", mock.Anything, "mage2", "orders", cutDtStatuses, 2, 2).Return(pageTwo, nil)

	svc := NewService(ledger, new(MockEntityStore), nil, nil, zap.NewNop(), Config{LedgerPageSize: 2})

	mark, err := svc.GetCutDt(context.Background(), "mage2", "orders")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), mark.CutDt)
	ledger.AssertExpectations(t)
}

func TestGetTask(t *testing.T) {
	store := new(MockEntityStore)
	store.On("FindByID", mock.Anything, "orders", "pending").Return(&domain.EntityRecord{
		ID: "pending", TxStatus: domain.TxStatusPending,
	}, nil)
	store.On("FindByID", mock.Anything, "orders", "done").Return(&domain.EntityRecord{
		ID: "done", TxStatus: domain.TxStatusSuccess, TxNote: "mage2 -> DataWald", TargetKey: "SO-1",
	}, nil)
	store.On("FindByID", mock.Anything, "orders", "missing").
		Return(nil, domain.ErrEntityNotFound)

	svc := NewService(new(MockLedgerRepository), store, nil, nil, zap.NewNop(), Config{})

	state, err := svc.GetTask(context.Background(), "orders", "pending")
	require.NoError(t, err)
	assert.False(t, state.Ready)

	state, err = svc.GetTask(context.Background(), "orders", "done")
	require.NoError(t, err)
	assert.True(t, state.Ready)
	assert.Equal(t, domain.TaskStatusSuccess, state.TaskStatus)
	assert.Equal(t, "SO-1", state.TargetKey)

	_, err = svc.GetTask(context.Background(), "orders", "missing")
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestTaskDataType(t *testing.T) {
	assert.Equal(t, "", taskDataType("orders"))
	assert.Equal(t, "inventory", taskDataType("products-inventory"))
	assert.Equal(t, "imagegallery", taskDataType("products-imagegallery"))
	assert.Equal(t, "", taskDataType("customers-bo"))
}
