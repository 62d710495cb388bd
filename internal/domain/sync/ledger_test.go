package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubWith(id string, status TaskStatus) EntityStub {
	return EntityStub{EntityID: id, BusinessKey: "K-" + id, TaskStatus: status}
}

func TestNewSyncRun(t *testing.T) {
	mark := Watermark{CutDt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	t.Run("rejects empty entity list", func(t *testing.T) {
		_, err := NewSyncRun("ERP1", "Shop1", "syncOrders", "orders", mark, "0", nil)
		assert.ErrorIs(t, err, ErrEmptyRun)
	})

	t.Run("starts processing with fresh id", func(t *testing.T) {
		run, err := NewSyncRun("ERP1", "Shop1", "syncOrders", "orders", mark, "0",
			[]EntityStub{stubWith("e1", TaskStatusUnset)})
		require.NoError(t, err)

		assert.NotEmpty(t, run.ID)
		assert.Equal(t, RunStatusProcessing, run.Status)
		assert.Nil(t, run.EndedAt)
		assert.Equal(t, mark, run.Watermark())
		assert.Len(t, run.Entities, 1)
	})

	t.Run("ids sort by creation order", func(t *testing.T) {
		first, err := NewSyncRun("ERP1", "Shop1", "syncOrders", "orders", mark, "0",
			[]EntityStub{stubWith("e1", TaskStatusUnset)})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		second, err := NewSyncRun("ERP1", "Shop1", "syncOrders", "orders", mark, "0",
			[]EntityStub{stubWith("e2", TaskStatusUnset)})
		require.NoError(t, err)

		assert.Less(t, first.ID, second.ID)
	})
}

func TestQueueName(t *testing.T) {
	mark := Watermark{CutDt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	run, err := NewSyncRun("ERP1", "Shop1", "syncOrders", "orders", mark, "0",
		[]EntityStub{stubWith("e1", TaskStatusUnset)})
	require.NoError(t, err)

	name := run.QueueName()
	assert.True(t, len(name) <= 80)
	assert.Contains(t, name, "ERP1_Shop1_orders_")
	assert.Equal(t, ".fifo", name[len(name)-5:])

	t.Run("long components are truncated before the suffix", func(t *testing.T) {
		run.BackOffice = "a-backoffice-with-an-unreasonably-long-identifier-for-queue-naming-purposes"
		name := run.QueueName()
		assert.Equal(t, 80, len(name))
		assert.Equal(t, ".fifo", name[75:])
	})
}

// Enumerates per-entity outcome combinations and checks the derived run
// status obeys the Fail > Incompleted > Completed precedence.
func TestDeriveRunStatus(t *testing.T) {
	outcomes := []TaskStatus{TaskStatusSuccess, TaskStatusFail, TaskStatusUnknown}

	statusFor := func(combo []TaskStatus) RunStatus {
		hasFail, hasUnknown := false, false
		for _, s := range combo {
			hasFail = hasFail || s == TaskStatusFail
			hasUnknown = hasUnknown || s == TaskStatusUnknown
		}
		switch {
		case hasFail:
			return RunStatusFail
		case hasUnknown:
			return RunStatusIncompleted
		default:
			return RunStatusCompleted
		}
	}

	var combos func(prefix []TaskStatus, n int)
	combos = func(prefix []TaskStatus, n int) {
		if n == 0 {
			entities := make([]EntityStub, len(prefix))
			for i, s := range prefix {
				entities[i] = stubWith(string(rune('a'+i)), s)
			}
			assert.Equal(t, statusFor(prefix), DeriveRunStatus(entities), "combo %v", prefix)
			return
		}
		for _, s := range outcomes {
			combos(append(prefix, s), n-1)
		}
	}
	for n := 1; n <= 5; n++ {
		combos(nil, n)
	}

	t.Run("unreported entity keeps the run incomplete", func(t *testing.T) {
		entities := []EntityStub{
			stubWith("a", TaskStatusSuccess),
			stubWith("b", TaskStatusUnset),
		}
		assert.Equal(t, RunStatusIncompleted, DeriveRunStatus(entities))
	})

	t.Run("raw application statuses count as resolved", func(t *testing.T) {
		entities := []EntityStub{
			stubWith("a", TaskStatus("complete")),
			stubWith("b", TaskStatusSuccess),
		}
		assert.Equal(t, RunStatusCompleted, DeriveRunStatus(entities))
	})
}

func TestFinalize(t *testing.T) {
	mark := Watermark{CutDt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

	newRun := func(t *testing.T, stubs ...EntityStub) *SyncRun {
		run, err := NewSyncRun("ERP1", "Shop1", "syncOrders", "orders", mark, "0", stubs)
		require.NoError(t, err)
		return run
	}

	t.Run("all success completes the run", func(t *testing.T) {
		run := newRun(t, stubWith("e1", TaskStatusUnset))
		run.Finalize([]EntityStub{{
			EntityID:   "e1",
			TaskStatus: TaskStatusSuccess,
			TaskDetail: TaskDetail{TargetKey: "B1"},
		}}, now)

		assert.Equal(t, RunStatusCompleted, run.Status)
		require.NotNil(t, run.EndedAt)
		assert.Equal(t, now, *run.EndedAt)
		assert.Equal(t, "B1", run.Entities[0].TaskDetail.TargetKey)
	})

	t.Run("one failure fails the run", func(t *testing.T) {
		run := newRun(t, stubWith("e1", TaskStatusUnset), stubWith("e2", TaskStatusUnset))
		run.Finalize([]EntityStub{
			{EntityID: "e1", TaskStatus: TaskStatusSuccess},
			{EntityID: "e2", TaskStatus: TaskStatusFail, TaskDetail: TaskDetail{Note: "boom"}},
		}, now)

		assert.Equal(t, RunStatusFail, run.Status)
	})

	t.Run("results for unknown ids are dropped", func(t *testing.T) {
		run := newRun(t, stubWith("e1", TaskStatusUnset))
		run.Finalize([]EntityStub{
			{EntityID: "e1", TaskStatus: TaskStatusSuccess},
			{EntityID: "ghost", TaskStatus: TaskStatusFail},
		}, now)

		assert.Equal(t, RunStatusCompleted, run.Status)
		assert.Len(t, run.Entities, 1)
	})
}

func TestPendingEntities(t *testing.T) {
	mark := Watermark{CutDt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	run, err := NewSyncRun("ERP1", "Shop1", "syncOrders", "orders", mark, "0", []EntityStub{
		stubWith("e1", TaskStatusSuccess),
		stubWith("e2", TaskStatusFail),
		stubWith("e3", TaskStatusUnknown),
		stubWith("e4", TaskStatusIgnored),
		stubWith("e5", TaskStatusUnset),
	})
	require.NoError(t, err)

	pending := run.PendingEntities()
	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.EntityID
	}
	assert.Equal(t, []string{"e2", "e3", "e5"}, ids)
}
