package ports

import (
	"context"
	"time"

	"remedy/internal/domain/remediation"
)

type ActionFilter struct {
	JobID         string
	Statuses      []remediation.ActionStatus
	FixMethods    []string
	RiskLevels    []remediation.RiskLevel
	MinConfidence *float64
	MaxConfidence *float64
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// ActionStats aggregates the whole filtered set, ignoring pagination.
type ActionStats struct {
	Total             int64
	StatusCounts      remediation.StatusCounts
	AverageConfidence float64
	HighConfidence    int64
	MediumConfidence  int64
	LowConfidence     int64
}

type HistoryFilter struct {
	ActionID    string
	BatchID     string
	EventTypes  []remediation.EventType
	PerformedBy string
	Ascending   bool
	Limit       int
	Offset      int
}

type ActionStore interface {
	CreateActions(ctx context.Context, actions []remediation.Action) error
	GetAction(ctx context.Context, actionID string) (remediation.Action, error)
	// GetActionsForUpdate loads the given ids keyed by id, locking the rows
	// when the store supports row locks. Missing ids are absent from the map.
	GetActionsForUpdate(ctx context.Context, actionIDs []string) (map[string]remediation.Action, error)
	SaveAction(ctx context.Context, action remediation.Action) error
	ListActions(ctx context.Context, filter ActionFilter) ([]remediation.Action, int64, error)
	SummarizeActions(ctx context.Context, filter ActionFilter) (ActionStats, error)
	CountStatusesByJob(ctx context.Context, jobID string) (remediation.StatusCounts, error)
}

// HistoryStore is append-only.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry remediation.HistoryEntry) error
	ListHistory(ctx context.Context, filter HistoryFilter) ([]remediation.HistoryEntry, int64, error)
}

type JobStore interface {
	CreateJob(ctx context.Context, job remediation.Job) error
	GetJob(ctx context.Context, jobID string) (remediation.Job, error)
	GetJobsByIDs(ctx context.Context, jobIDs []string) (map[string]remediation.Job, error)
	SaveJobProgress(ctx context.Context, job remediation.Job) error
}

// Stores is the repository set one call works against, either bound to a
// transaction or to the base connection.
type Stores struct {
	Actions ActionStore
	History HistoryStore
	Jobs    JobStore
}
