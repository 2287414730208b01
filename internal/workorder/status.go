package workorder

import (
	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
)

var transitions = map[database.WorkOrderStatus][]database.WorkOrderStatus{
	database.StatusPending:   {database.StatusExecuting},
	database.StatusExecuting: {database.StatusCompleted, database.StatusFailed},
	database.StatusCompleted: {database.StatusUndone},
}

// ValidStatus reports whether s is one of the known statuses
func ValidStatus(s database.WorkOrderStatus) bool {
	switch s {
	case database.StatusPending, database.StatusExecuting, database.StatusCompleted,
		database.StatusFailed, database.StatusUndone:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to database.WorkOrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition for illegal moves
func CheckTransition(from, to database.WorkOrderStatus) error {
	if !ValidStatus(to) {
		return errorx.ErrInvalidInput.WithMessagef("unknown status %q", to)
	}
	if !CanTransition(from, to) {
		return errorx.ErrInvalidTransition.WithMessagef("cannot move work order from %s to %s", from, to)
	}
	return nil
}

// Terminal reports whether no further transition exists
func Terminal(s database.WorkOrderStatus) bool {
	return len(transitions[s]) == 0
}
