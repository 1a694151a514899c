package remediation

import (
	"fmt"
	"strings"
)

type ActionStatus string

const (
	StatusPending        ActionStatus = "pending"
	StatusRequiresReview ActionStatus = "requires_review"
	StatusApplied        ActionStatus = "applied"
	StatusRejected       ActionStatus = "rejected"
	StatusSkipped        ActionStatus = "skipped"
)

// AllStatuses lists action statuses in lifecycle order.
var AllStatuses = []ActionStatus{
	StatusPending,
	StatusRequiresReview,
	StatusApplied,
	StatusRejected,
	StatusSkipped,
}

var transitions = map[ActionStatus]map[ActionStatus]struct{}{
	StatusPending: {
		StatusApplied:        {},
		StatusRejected:       {},
		StatusRequiresReview: {},
		StatusSkipped:        {},
	},
	StatusRequiresReview: {
		StatusApplied:  {},
		StatusRejected: {},
		StatusSkipped:  {},
	},
	StatusApplied: {
		StatusPending: {},
	},
	StatusRejected: {
		StatusPending: {},
	},
	StatusSkipped: {
		StatusPending: {},
	},
}

// CanTransition reports whether an action may move from one status to another.
func CanTransition(from, to ActionStatus) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// AllowedTargets returns the statuses reachable from s, in lifecycle order.
func AllowedTargets(s ActionStatus) []ActionStatus {
	out := make([]ActionStatus, 0, 4)
	for _, candidate := range AllStatuses {
		if CanTransition(s, candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

func ParseActionStatus(raw string) (ActionStatus, error) {
	status := ActionStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

func (s ActionStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsInitial reports whether the detection side may create an action in this status.
func (s ActionStatus) IsInitial() bool {
	return s == StatusPending || s == StatusRequiresReview
}

// IsDecided is true for statuses counted by job progress.
func (s ActionStatus) IsDecided() bool {
	return s == StatusApplied || s == StatusRejected || s == StatusSkipped
}

type EventType string

const (
	EventStarted    EventType = "started"
	EventApproved   EventType = "approved"
	EventRejected   EventType = "rejected"
	EventReviewed   EventType = "reviewed"
	EventRolledBack EventType = "rolled_back"
	EventSkipped    EventType = "skipped"
)

func ParseEventType(raw string) (EventType, error) {
	event := EventType(strings.ToLower(strings.TrimSpace(raw)))
	switch event {
	case EventStarted, EventApproved, EventRejected, EventReviewed, EventRolledBack, EventSkipped:
		return event, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEventType, raw)
	}
}

// EventTypeFor maps an accepted transition onto the audit event it produces.
func EventTypeFor(from, to ActionStatus) EventType {
	switch to {
	case StatusApplied:
		return EventApproved
	case StatusRejected:
		return EventRejected
	case StatusSkipped:
		return EventSkipped
	case StatusRequiresReview:
		return EventReviewed
	case StatusPending:
		if from == StatusApplied {
			return EventRolledBack
		}
		return EventStarted
	default:
		return EventStarted
	}
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)
