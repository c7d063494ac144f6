package giveaway

// WinnerStatus is the winner-facing delivery outcome.
type WinnerStatus string

const (
	WinnerPending WinnerStatus = "PENDING"
	WinnerSent    WinnerStatus = "SENT"
	WinnerFailed  WinnerStatus = "FAILED"
)

// TaskStatus is the notification task lifecycle. PENDING is entered once at
// creation; SENT and FAILED are terminal (FAILED may be re-armed only by an
// explicit operator action).
type TaskStatus string

const (
	TaskPending  TaskStatus = "PENDING"
	TaskSending  TaskStatus = "SENDING"
	TaskSent     TaskStatus = "SENT"
	TaskRetrying TaskStatus = "RETRYING"
	TaskFailed   TaskStatus = "FAILED"
)

var taskTransitions = map[TaskStatus]map[TaskStatus]struct{}{
	TaskPending: {
		TaskSending: {},
	},
	TaskSending: {
		TaskSent:     {},
		TaskRetrying: {},
		TaskFailed:   {},
	},
	TaskRetrying: {
		TaskSending: {},
	},
	// FAILED -> SENDING covers operator re-arm through the retry pass.
	TaskFailed: {
		TaskSending: {},
	},
}

// CanTransition reports whether from -> to is an allowed task transition.
func CanTransition(from, to TaskStatus) bool {
	next, ok := taskTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// IsTerminal reports whether the status ends the task lifecycle.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskSent || s == TaskFailed
}

// ValidTaskStatus reports whether s names a known task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskSending, TaskSent, TaskRetrying, TaskFailed:
		return true
	}
	return false
}
