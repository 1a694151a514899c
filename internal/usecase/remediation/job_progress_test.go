package remediation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "remedy/internal/domain/remediation"
)

func TestUpdateJobsProgressIsIdempotent(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 4,
		seedAction{id: "a1", status: domain.StatusApplied},
		seedAction{id: "a2", status: domain.StatusRejected},
		seedAction{id: "a3", status: domain.StatusPending},
	)
	ctx := context.Background()

	first, err := f.svc.RecomputeJob(ctx, "job-1")
	require.NoError(t, err)
	second, err := f.svc.RecomputeJob(ctx, "job-1")
	require.NoError(t, err)

	assert.Equal(t, 1, first.FixedViolations)
	assert.Equal(t, 1, first.RejectedCount)
	assert.Equal(t, first.FixedViolations, second.FixedViolations)
	assert.Equal(t, first.RejectedCount, second.RejectedCount)
	assert.Equal(t, first.SkippedCount, second.SkippedCount)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, domain.JobInProgress, second.Status)
	assert.InDelta(t, 50.0, second.PercentComplete, 0.001)
	assert.Equal(t, 1, second.Breakdown[domain.StatusPending])
}

func TestUpdateJobsProgressCompletesOnce(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 2,
		seedAction{id: "a1", status: domain.StatusApplied},
		seedAction{id: "a2", status: domain.StatusSkipped},
	)
	ctx := context.Background()

	first, err := f.svc.RecomputeJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, domain.JobCompleted, first.Status)
	require.NotNil(t, first.CompletedAt)

	second, err := f.svc.RecomputeJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, second.CompletedAt)
	assert.True(t, first.CompletedAt.Equal(*second.CompletedAt))
}

func TestUpdateJobsProgressUnknownJob(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.UpdateJobsProgress(context.Background(), []string{"nope"})
	require.ErrorIs(t, err, domain.ErrJobNotFound)

	_, err = f.svc.UpdateJobsProgress(context.Background(), nil)
	require.Error(t, err)
}

func TestGetJobProgressAndPeek(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 2,
		seedAction{id: "a1", status: domain.StatusPending},
		seedAction{id: "a2", status: domain.StatusPending},
	)
	ctx := context.Background()

	status, err := f.svc.PeekJobStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobInProgress, status)

	_, err = f.svc.BulkApplyActions(ctx, BulkActionRequest{ActionIDs: []string{"a1", "a2"}, PerformedBy: "alice"})
	require.NoError(t, err)

	progress, err := f.svc.GetJobProgress(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, progress.Status)
	assert.Equal(t, 2, progress.Breakdown[domain.StatusApplied])
	assert.InDelta(t, 100.0, progress.PercentComplete, 0.001)

	f.cache.data["job_status:job-1"] = "cancelled"
	status, err = f.svc.PeekJobStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCancelled, status)

	_, err = f.svc.GetJobProgress(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}
