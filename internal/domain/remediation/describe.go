package remediation

import (
	"fmt"
	"strings"
)

// DefaultSystemActors are performers treated as automation rather than operators.
var DefaultSystemActors = []string{"system", "automation", "scheduler"}

var systemSources = map[string]struct{}{
	SourceSystem: {},
	"automation": {},
	"scheduler":  {},
	"auto_fix":   {},
}

// IsSystemActor classifies a history entry as automation when either the
// performer is a known system actor (or "system:"-prefixed) or the metadata
// source names an automated origin.
func IsSystemActor(performedBy string, source string, systemActors []string) bool {
	actor := strings.ToLower(strings.TrimSpace(performedBy))
	if actor == "" || strings.HasPrefix(actor, "system:") {
		return true
	}
	for _, candidate := range systemActors {
		if actor == strings.ToLower(strings.TrimSpace(candidate)) {
			return true
		}
	}
	_, ok := systemSources[strings.ToLower(strings.TrimSpace(source))]
	return ok
}

// Describe renders a one-line human description of a history entry.
func Describe(entry HistoryEntry) string {
	actor := strings.TrimSpace(entry.PerformedBy)
	if actor == "" {
		actor = "system"
	}

	var base string
	switch entry.EventType {
	case EventApproved:
		base = fmt.Sprintf("Fix applied by %s", actor)
		if entry.NewValue != nil {
			base += fmt.Sprintf(" (value set to %q)", *entry.NewValue)
		}
	case EventRejected:
		base = fmt.Sprintf("Fix rejected by %s", actor)
	case EventSkipped:
		base = fmt.Sprintf("Action skipped by %s", actor)
	case EventReviewed:
		base = fmt.Sprintf("Action flagged for review by %s", actor)
	case EventRolledBack:
		base = fmt.Sprintf("Applied fix rolled back by %s", actor)
		if entry.NewValue != nil {
			base += fmt.Sprintf(" (restored %q)", *entry.NewValue)
		}
	case EventStarted:
		base = fmt.Sprintf("Action reopened by %s", actor)
	default:
		base = fmt.Sprintf("Status changed by %s", actor)
	}

	if entry.OldStatus != "" && entry.NewStatus != "" {
		base += fmt.Sprintf(": %s -> %s", entry.OldStatus, entry.NewStatus)
	}
	if entry.Reason != nil && strings.TrimSpace(*entry.Reason) != "" {
		base += " - " + strings.TrimSpace(*entry.Reason)
	}
	return base
}
