package remediation

import "time"

type Action struct {
	ID          string
	JobID       string
	ViolationID string
	RecordID    string
	FieldName   string

	ActionType     string
	FixMethod      string
	Confidence     float64
	RiskAssessment RiskAssessment

	OriginalValue  *string
	SuggestedValue *string
	AppliedValue   *string

	Status     ActionStatus
	ReviewedBy *string
	ReviewedAt *time.Time

	Metadata     ActionMetadata
	RollbackData map[string]any

	CreatedAt time.Time
	AppliedAt *time.Time
	UpdatedAt time.Time
}

type HistoryEntry struct {
	ID          string
	ActionID    string
	EventType   EventType
	OldStatus   ActionStatus
	NewStatus   ActionStatus
	OldValue    *string
	NewValue    *string
	PerformedBy string
	Reason      *string
	Metadata    HistoryMetadata
	CreatedAt   time.Time
}

type Job struct {
	ID              string
	Name            string
	TotalViolations int
	FixedViolations int
	RejectedCount   int
	SkippedCount    int
	Status          JobStatus
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
