package remediation

import "time"

// StatusCounts is a histogram of action statuses.
type StatusCounts map[ActionStatus]int

func (c StatusCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Decided is the number of applied, rejected and skipped actions.
func (c StatusCounts) Decided() int {
	return c[StatusApplied] + c[StatusRejected] + c[StatusSkipped]
}

// RecomputeProgress overwrites the job counters from counts and completes an
// in-progress job whose decided actions cover its total. It never increments.
func RecomputeProgress(job Job, counts StatusCounts, now time.Time) Job {
	job.FixedViolations = counts[StatusApplied]
	job.RejectedCount = counts[StatusRejected]
	job.SkippedCount = counts[StatusSkipped]

	decided := job.FixedViolations + job.RejectedCount + job.SkippedCount
	if job.Status == JobInProgress && decided >= job.TotalViolations {
		job.Status = JobCompleted
		completedAt := now
		job.CompletedAt = &completedAt
	}
	job.UpdatedAt = now
	return job
}

// PercentComplete is decided/total in [0, 100].
func PercentComplete(job Job) float64 {
	if job.TotalViolations <= 0 {
		return 0
	}
	decided := job.FixedViolations + job.RejectedCount + job.SkippedCount
	pct := float64(decided) * 100 / float64(job.TotalViolations)
	if pct > 100 {
		return 100
	}
	return pct
}

const (
	HighConfidenceThreshold   = 0.8
	MediumConfidenceThreshold = 0.5
)

type ConfidenceBucket string

const (
	ConfidenceHigh   ConfidenceBucket = "high"
	ConfidenceMedium ConfidenceBucket = "medium"
	ConfidenceLow    ConfidenceBucket = "low"
)

func BucketConfidence(confidence float64) ConfidenceBucket {
	switch {
	case confidence >= HighConfidenceThreshold:
		return ConfidenceHigh
	case confidence >= MediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
