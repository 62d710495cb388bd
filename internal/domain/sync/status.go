package sync

// RunStatus is the aggregate status of one sync run.
type RunStatus string

const (
	// RunStatusProcessing indicates the run is still in flight
	RunStatusProcessing RunStatus = "Processing"
	// RunStatusCompleted indicates every entity in the run resolved successfully
	RunStatusCompleted RunStatus = "Completed"
	// RunStatusFail indicates at least one entity failed
	RunStatusFail RunStatus = "Fail"
	// RunStatusIncompleted indicates at least one entity never reported a terminal result
	RunStatusIncompleted RunStatus = "Incompleted"
)

// IsValid returns true if the status is one of the known run statuses
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusProcessing, RunStatusCompleted, RunStatusFail, RunStatusIncompleted:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once the run can no longer change status on its own
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFail || s == RunStatusIncompleted
}

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	return string(s)
}

// TaskStatus is the per-entity outcome inside a sync run. Besides the fixed
// values below it may carry the raw transactional status of the target
// entity, so it is deliberately an open string type.
type TaskStatus string

const (
	// TaskStatusSuccess marks an entity that synced successfully
	TaskStatusSuccess TaskStatus = "S"
	// TaskStatusFail marks an entity whose sync attempt failed
	TaskStatusFail TaskStatus = "F"
	// TaskStatusUnknown marks an entity whose result could not be retrieved
	// within the poll budget
	TaskStatusUnknown TaskStatus = "?"
	// TaskStatusIgnored marks an entity that needed no work
	TaskStatusIgnored TaskStatus = "I"
	// TaskStatusUnset is the zero value before any worker reports back
	TaskStatusUnset TaskStatus = ""
)

// TxStatus is the transactional status of an entity record in the store.
type TxStatus string

const (
	// TxStatusNew marks a record that still needs to be pushed
	TxStatusNew TxStatus = "N"
	// TxStatusPending marks a record currently being worked on
	TxStatusPending TxStatus = "P"
	// TxStatusIgnored marks a record whose latest sighting carried no change
	TxStatusIgnored TxStatus = "I"
	// TxStatusFail marks a record whose last sync attempt failed
	TxStatusFail TxStatus = "F"
	// TxStatusSuccess marks a record synced to its target
	TxStatusSuccess TxStatus = "S"
)

// Ready reports whether the record has reached a state a run aggregator can
// read a result from. New and pending records are still in flight.
func (s TxStatus) Ready() bool {
	return s != TxStatusNew && s != TxStatusPending
}

// DeriveRunStatus computes the aggregate run status from the per-entity
// outcomes. Precedence is Fail > Incompleted > Completed; an entity with no
// reported status yet counts as non-terminal and therefore Incompleted.
func DeriveRunStatus(entities []EntityStub) RunStatus {
	status := RunStatusCompleted
	for _, e := range entities {
		switch e.TaskStatus {
		case TaskStatusFail:
			return RunStatusFail
		case TaskStatusUnknown, TaskStatusUnset:
			status = RunStatusIncompleted
		}
	}
	return status
}
