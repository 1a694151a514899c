package remediation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "remedy/internal/domain/remediation"
)

func TestRollbackRoundTrip(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 2,
		seedAction{id: "a1", status: domain.StatusPending, reversible: true},
		seedAction{id: "a2", status: domain.StatusPending, reversible: true},
	)
	ctx := context.Background()

	_, err := f.svc.BulkApplyActions(ctx, BulkActionRequest{ActionIDs: []string{"a1"}, PerformedBy: "alice"})
	require.NoError(t, err)
	firstApplied := *f.action(t, "a1").AppliedValue
	assert.Equal(t, 1, f.job(t, "job-1").FixedViolations)

	result, err := f.svc.RollbackAction(ctx, "a1", RollbackRequest{PerformedBy: "bob", Reason: "customer complaint"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.PreviousValue)
	assert.Equal(t, "a1", *result.PreviousValue)
	require.NotNil(t, result.RestoredValue)
	assert.Equal(t, " a1 ", *result.RestoredValue)

	rolledBack := f.action(t, "a1")
	assert.Equal(t, domain.StatusPending, rolledBack.Status)
	assert.Nil(t, rolledBack.AppliedValue)
	assert.Nil(t, rolledBack.AppliedAt)
	assert.Equal(t, 0, f.job(t, "job-1").FixedViolations)

	entries := f.history(t, "a1")
	require.Len(t, entries, 2)
	last := entries[1]
	assert.Equal(t, domain.EventRolledBack, last.EventType)
	assert.Equal(t, domain.StatusApplied, last.OldStatus)
	assert.Equal(t, domain.StatusPending, last.NewStatus)
	assert.Equal(t, "bob", last.PerformedBy)
	assert.Equal(t, domain.SourceRollback, last.Metadata.Source)
	require.NotNil(t, last.OldValue)
	assert.Equal(t, "a1", *last.OldValue)

	_, err = f.svc.BulkApplyActions(ctx, BulkActionRequest{ActionIDs: []string{"a1"}, PerformedBy: "alice"})
	require.NoError(t, err)
	reapplied := f.action(t, "a1")
	require.NotNil(t, reapplied.AppliedValue)
	assert.Equal(t, firstApplied, *reapplied.AppliedValue)
	f.assertJobMatchesActions(t, "job-1")
}

func TestRollbackPendingActionFails(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 1, seedAction{id: "A1", status: domain.StatusPending, reversible: true})

	_, err := f.svc.RollbackAction(context.Background(), "A1", RollbackRequest{PerformedBy: "bob"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot rollback")
	assert.ErrorIs(t, err, domain.ErrNotApplied)
	assert.Empty(t, f.history(t, "A1"))
	assert.Equal(t, domain.StatusPending, f.action(t, "A1").Status)
}

func TestRollbackPreconditions(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 1, seedAction{id: "fixed", status: domain.StatusApplied, reversible: false})
	ctx := context.Background()

	_, err := f.svc.RollbackAction(ctx, "missing", RollbackRequest{PerformedBy: "bob"})
	require.ErrorIs(t, err, domain.ErrActionNotFound)
	assert.Contains(t, err.Error(), "cannot rollback")

	_, err = f.svc.RollbackAction(ctx, "fixed", RollbackRequest{PerformedBy: "bob"})
	require.ErrorIs(t, err, domain.ErrNotReversible)
	assert.Equal(t, domain.StatusApplied, f.action(t, "fixed").Status)

	_, err = f.svc.RollbackAction(ctx, "fixed", RollbackRequest{})
	require.ErrorIs(t, err, domain.ErrPerformedByRequired)
}

func TestRollbackStorageFailure(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 1, seedAction{id: "a1", status: domain.StatusApplied, reversible: true})

	failing := f.withUnitOfWork(&failingUnitOfWork{inner: f.uow, failOn: 1})
	_, err := failing.RollbackAction(context.Background(), "a1", RollbackRequest{PerformedBy: "bob"})
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, domain.StatusApplied, f.action(t, "a1").Status)
	assert.Empty(t, f.history(t, "a1"))
}

func TestBulkRollbackCollectsFailures(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 4,
		seedAction{id: "ok", status: domain.StatusApplied, reversible: true},
		seedAction{id: "locked", status: domain.StatusApplied, reversible: false},
		seedAction{id: "open", status: domain.StatusPending, reversible: true},
	)

	out, err := f.svc.BulkRollbackActions(context.Background(), BulkRollbackRequest{
		ActionIDs:   []string{"ok", "locked", "open", "ghost", "ok"},
		PerformedBy: "bob",
		BatchID:     "rb-1",
	})
	require.NoError(t, err)

	require.Len(t, out.Results, 5)
	assert.True(t, out.Results[0].Success)
	assert.Contains(t, out.Results[1].Message, "not reversible")
	assert.Contains(t, out.Results[2].Message, "not applied")
	assert.Contains(t, out.Results[3].Message, "not found")
	assert.Contains(t, out.Results[4].Message, "not applied")

	assert.Equal(t, "rb-1", out.Summary.BatchID)
	assert.Equal(t, 5, out.Summary.TotalRequested)
	assert.Equal(t, 1, out.Summary.SuccessCount)
	assert.Equal(t, 4, out.Summary.FailureCount)

	assert.Equal(t, domain.StatusPending, f.action(t, "ok").Status)
	assert.Equal(t, domain.StatusApplied, f.action(t, "locked").Status)
	entries := f.history(t, "ok")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SourceBulkRollback, entries[0].Metadata.Source)
	assert.Equal(t, "rb-1", entries[0].Metadata.BatchID)
	f.assertJobMatchesActions(t, "job-1")
}

func TestBulkRollbackStorageFailureLeavesNoPartialWrites(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 3,
		seedAction{id: "a1", status: domain.StatusApplied, reversible: true},
		seedAction{id: "a2", status: domain.StatusApplied, reversible: true},
		seedAction{id: "a3", status: domain.StatusApplied, reversible: true},
	)
	ctx := context.Background()
	before := f.job(t, "job-1")

	failing := f.withUnitOfWork(&failingUnitOfWork{inner: f.uow, failOn: 2})
	_, err := failing.BulkRollbackActions(ctx, BulkRollbackRequest{
		ActionIDs:   []string{"a1", "a2", "a3"},
		PerformedBy: "bob",
	})
	require.ErrorIs(t, err, errInjected)

	for _, id := range []string{"a1", "a2", "a3"} {
		action := f.action(t, id)
		assert.Equal(t, domain.StatusApplied, action.Status)
		require.NotNil(t, action.AppliedValue)
		assert.Empty(t, f.history(t, id))
	}
	assert.Equal(t, before.FixedViolations, f.job(t, "job-1").FixedViolations)
}

func TestRollbackClearsApplySnapshot(t *testing.T) {
	f := setupService(t)
	f.seedJob(t, "job-1", 1, seedAction{id: "a1", status: domain.StatusPending, reversible: true})
	ctx := context.Background()

	_, err := f.svc.BulkApplyActions(ctx, BulkActionRequest{ActionIDs: []string{"a1"}, PerformedBy: "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, f.action(t, "a1").RollbackData)

	_, err = f.svc.RollbackAction(ctx, "a1", RollbackRequest{PerformedBy: "bob"})
	require.NoError(t, err)

	action := f.action(t, "a1")
	assert.Equal(t, domain.StatusPending, action.Status)
	assert.Nil(t, action.RollbackData)
	assert.Nil(t, action.AppliedValue)
}
