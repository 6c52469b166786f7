package tasks

import "fmt"

// ProgressUpdate represents a progress event during a bulk operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Dispatch Phase = iota
	Apply
	Refresh
)

func (p Phase) String() string {
	switch p {
	case Dispatch:
		return "dispatch"
	case Apply:
		return "apply"
	case Refresh:
		return "refresh"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func dispatchUpdate(total int, action Action) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Dispatch,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Applying %s to %d orders...", action, total),
	}
}

func appliedUpdate(step, total int, res ActionResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Apply,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s #%d", step, total, res.Action, res.OrderID),
		Data:    res,
	}
}

func failedUpdate(step, total int, res ActionResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Apply,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s #%d: %v", step, total, res.Action, res.OrderID, res.Err),
		Data:    res,
	}
}

func refreshUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Refresh,
		Step:    total,
		Total:   total,
		Message: "Refreshing order board...",
	}
}
