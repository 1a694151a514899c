package remediation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"remedy/internal/bootstrap/logging"
	domain "remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/ports"
)

type RollbackRequest struct {
	PerformedBy string
	Reason      string
}

type BulkRollbackRequest struct {
	ActionIDs   []string
	PerformedBy string
	Reason      string
	BatchID     string
}

type ActionRollbackResult struct {
	ActionID      string  `json:"actionId"`
	Success       bool    `json:"success"`
	PreviousValue *string `json:"previousValue,omitempty"`
	RestoredValue *string `json:"restoredValue,omitempty"`
	Message       string  `json:"message"`
}

type BulkRollbackResult struct {
	Results []ActionRollbackResult `json:"results"`
	Summary BulkActionResult       `json:"summary"`
}

const rollbackSucceeded = "action rolled back to pending"

// RollbackAction reverts one applied, reversible action to pending. Any
// precondition failure is returned as an error and nothing is written.
func (s *Service) RollbackAction(ctx context.Context, actionID string, req RollbackRequest) (ActionRollbackResult, error) {
	if err := s.checkWrite(ctx); err != nil {
		return ActionRollbackResult{}, err
	}
	id := strings.TrimSpace(actionID)
	if id == "" {
		return ActionRollbackResult{}, domain.ErrActionIDsRequired
	}
	performedBy := strings.TrimSpace(req.PerformedBy)
	if performedBy == "" {
		return ActionRollbackResult{}, domain.ErrPerformedByRequired
	}

	logCtx := logging.WithOperation(logging.WithAttrs(ctx, slog.String("component", "usecase.remediation")), "rollback", "")
	now := s.now()

	var (
		result ActionRollbackResult
		jobs   []domain.Job
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context, tx ports.Stores) error {
		loaded, err := tx.Actions.GetActionsForUpdate(txCtx, []string{id})
		if err != nil {
			return err
		}
		action, ok := loaded[id]
		if !ok {
			return fmt.Errorf("cannot rollback action %s: %w", id, domain.ErrActionNotFound)
		}
		if err := checkRollback(action); err != nil {
			return fmt.Errorf("cannot rollback action %s: %w", id, err)
		}

		next, entry := s.revert(action, performedBy, req.Reason, now)
		entry.Metadata = domain.HistoryMetadata{Source: domain.SourceRollback}
		if err := s.persistTransition(txCtx, tx, next, entry); err != nil {
			return err
		}

		result = ActionRollbackResult{
			ActionID:      id,
			Success:       true,
			PreviousValue: entry.OldValue,
			RestoredValue: entry.NewValue,
			Message:       rollbackSucceeded,
		}
		jobs, err = s.updateJobsProgress(txCtx, tx, []string{next.JobID}, now)
		return err
	}); err != nil {
		if isSoftFailure(err) {
			logging.Warn(logCtx, "rollback refused", slog.String("action_id", id), slog.String("reason", err.Error()))
			return ActionRollbackResult{}, err
		}
		logging.Error(logCtx, "rollback failed", slog.String("action_id", id), slog.Any("err", errs.Loggable(err)))
		return ActionRollbackResult{}, errs.Wrapf(err, "rollback action %s", id)
	}

	s.cacheJobs(logCtx, jobs)
	logging.Info(logCtx, "rollback finished", slog.String("action_id", id), slog.String("performed_by", performedBy))
	return result, nil
}

// BulkRollbackActions applies the single rollback preconditions per item and
// collects failures instead of aborting.
func (s *Service) BulkRollbackActions(ctx context.Context, req BulkRollbackRequest) (BulkRollbackResult, error) {
	if err := s.checkWrite(ctx); err != nil {
		return BulkRollbackResult{}, err
	}
	ids, performedBy, err := s.normalizeBatch(req.ActionIDs, req.PerformedBy)
	if err != nil {
		return BulkRollbackResult{}, err
	}
	batchID := strings.TrimSpace(req.BatchID)
	if batchID == "" {
		batchID = s.ids.NewID()
	}

	logCtx := logging.WithOperation(logging.WithAttrs(ctx, slog.String("component", "usecase.remediation")), "bulk_rollback", batchID)
	now := s.now()

	var (
		results []ActionRollbackResult
		jobs    []domain.Job
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context, tx ports.Stores) error {
		results = make([]ActionRollbackResult, 0, len(ids))

		loaded, err := tx.Actions.GetActionsForUpdate(txCtx, uniqueIDs(ids))
		if err != nil {
			return err
		}

		touched := newJobSet()
		for _, id := range ids {
			action, ok := loaded[id]
			if !ok {
				results = append(results, ActionRollbackResult{ActionID: id, Message: fmt.Sprintf("action %s not found", id)})
				continue
			}
			if err := checkRollback(action); err != nil {
				results = append(results, ActionRollbackResult{ActionID: id, Message: fmt.Sprintf("action %s: %v", id, err)})
				logging.Debug(logCtx, "bulk rollback item failed", slog.String("action_id", id), slog.String("reason", err.Error()))
				continue
			}

			next, entry := s.revert(action, performedBy, req.Reason, now)
			entry.Metadata = domain.HistoryMetadata{Source: domain.SourceBulkRollback, BatchID: batchID}
			if err := s.persistTransition(txCtx, tx, next, entry); err != nil {
				return err
			}

			loaded[id] = next
			touched.add(next.JobID)
			results = append(results, ActionRollbackResult{
				ActionID:      id,
				Success:       true,
				PreviousValue: entry.OldValue,
				RestoredValue: entry.NewValue,
				Message:       rollbackSucceeded,
			})
		}

		jobs, err = s.updateJobsProgress(txCtx, tx, touched.list(), now)
		return err
	}); err != nil {
		logging.Error(logCtx, "bulk rollback failed", slog.Any("err", errs.Loggable(err)))
		return BulkRollbackResult{}, errs.Wrapf(err, "bulk_rollback batch %s", batchID)
	}

	summary := BulkActionResult{
		BatchID:        batchID,
		TotalRequested: len(ids),
		Results:        make([]BulkItemResult, 0, len(results)),
	}
	for _, item := range results {
		entry := BulkItemResult{ActionID: item.ActionID, Success: item.Success}
		if item.Success {
			entry.Status = domain.StatusPending
		} else {
			entry.Error = item.Message
		}
		summary.add(entry)
	}

	s.cacheJobs(logCtx, jobs)
	logging.Info(
		logCtx,
		"bulk rollback finished",
		slog.String("performed_by", performedBy),
		slog.Int("requested", summary.TotalRequested),
		slog.Int("succeeded", summary.SuccessCount),
		slog.Int("failed", summary.FailureCount),
	)
	return BulkRollbackResult{Results: results, Summary: summary}, nil
}

// checkRollback runs the ordered preconditions after existence: applied, then reversible.
func checkRollback(action domain.Action) error {
	if action.Status != domain.StatusApplied {
		return fmt.Errorf("%w (status %s)", domain.ErrNotApplied, action.Status)
	}
	if !action.Metadata.Reversible() {
		return domain.ErrNotReversible
	}
	return nil
}

func (s *Service) revert(action domain.Action, performedBy string, reason string, now time.Time) (domain.Action, domain.HistoryEntry) {
	previous := cloneString(action.AppliedValue)
	entry := domain.HistoryEntry{
		ID:          s.ids.NewID(),
		ActionID:    action.ID,
		EventType:   domain.EventRolledBack,
		OldStatus:   action.Status,
		NewStatus:   domain.StatusPending,
		OldValue:    previous,
		NewValue:    cloneString(action.OriginalValue),
		PerformedBy: performedBy,
		Reason:      optionalString(reason),
		CreatedAt:   now,
	}

	action.Status = domain.StatusPending
	action.AppliedValue = nil
	action.AppliedAt = nil
	action.RollbackData = nil
	action.UpdatedAt = now
	return action, entry
}
