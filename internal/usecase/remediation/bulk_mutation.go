package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"remedy/internal/bootstrap/logging"
	domain "remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/ports"
)

type BulkActionRequest struct {
	ActionIDs   []string
	PerformedBy string
	Reason      string
	// BatchID is generated when empty.
	BatchID string
}

type UpdateStatusRequest struct {
	ActionIDs   []string
	Status      domain.ActionStatus
	PerformedBy string
	Reason      string
	BatchID     string
}

type BulkItemResult struct {
	ActionID string              `json:"actionId"`
	Success  bool                `json:"success"`
	Status   domain.ActionStatus `json:"status,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type BulkActionResult struct {
	BatchID        string           `json:"batchId"`
	TotalRequested int              `json:"totalRequested"`
	SuccessCount   int              `json:"successCount"`
	FailureCount   int              `json:"failureCount"`
	Results        []BulkItemResult `json:"results"`
}

func (r *BulkActionResult) add(item BulkItemResult) {
	r.Results = append(r.Results, item)
	if item.Success {
		r.SuccessCount++
	} else {
		r.FailureCount++
	}
}

// BulkApplyActions moves each action to applied, copying the suggested value.
func (s *Service) BulkApplyActions(ctx context.Context, req BulkActionRequest) (BulkActionResult, error) {
	return s.bulkTransition(ctx, "bulk_apply", bulkCall{
		ids:         req.ActionIDs,
		target:      domain.StatusApplied,
		performedBy: req.PerformedBy,
		reason:      req.Reason,
		batchID:     req.BatchID,
		source:      domain.SourceBulkOperation,
	})
}

// BulkRejectActions moves each action to rejected and records the reason in its metadata.
func (s *Service) BulkRejectActions(ctx context.Context, req BulkActionRequest) (BulkActionResult, error) {
	return s.bulkTransition(ctx, "bulk_reject", bulkCall{
		ids:         req.ActionIDs,
		target:      domain.StatusRejected,
		performedBy: req.PerformedBy,
		reason:      req.Reason,
		batchID:     req.BatchID,
		source:      domain.SourceBulkOperation,
	})
}

// BulkUpdateStatus is the generic form gated by the transition table. It
// refuses applied -> pending per item; that path belongs to rollback.
func (s *Service) BulkUpdateStatus(ctx context.Context, req UpdateStatusRequest) (BulkActionResult, error) {
	target, err := domain.ParseActionStatus(string(req.Status))
	if err != nil {
		return BulkActionResult{}, err
	}
	return s.bulkTransition(ctx, "bulk_update_status", bulkCall{
		ids:           req.ActionIDs,
		target:        target,
		performedBy:   req.PerformedBy,
		reason:        req.Reason,
		batchID:       req.BatchID,
		source:        domain.SourceStatusUpdate,
		guardRollback: true,
	})
}

type bulkCall struct {
	ids           []string
	target        domain.ActionStatus
	performedBy   string
	reason        string
	batchID       string
	source        string
	guardRollback bool
}

func (s *Service) bulkTransition(ctx context.Context, operation string, call bulkCall) (BulkActionResult, error) {
	if err := s.checkWrite(ctx); err != nil {
		return BulkActionResult{}, err
	}

	ids, performedBy, err := s.normalizeBatch(call.ids, call.performedBy)
	if err != nil {
		return BulkActionResult{}, err
	}
	batchID := strings.TrimSpace(call.batchID)
	if batchID == "" {
		batchID = s.ids.NewID()
	}

	logCtx := logging.WithOperation(logging.WithAttrs(ctx, slog.String("component", "usecase.remediation")), operation, batchID)
	now := s.now()
	result := BulkActionResult{
		BatchID:        batchID,
		TotalRequested: len(ids),
		Results:        make([]BulkItemResult, 0, len(ids)),
	}

	var jobs []domain.Job
	if err := s.uow.WithTx(ctx, func(txCtx context.Context, tx ports.Stores) error {
		result.Results = result.Results[:0]
		result.SuccessCount, result.FailureCount = 0, 0

		loaded, err := tx.Actions.GetActionsForUpdate(txCtx, uniqueIDs(ids))
		if err != nil {
			return err
		}

		touched := newJobSet()
		for _, id := range ids {
			action, ok := loaded[id]
			if !ok {
				result.add(BulkItemResult{ActionID: id, Error: fmt.Sprintf("action %s not found", id)})
				logging.Debug(logCtx, "bulk item failed", slog.String("action_id", id), slog.String("reason", "not found"))
				continue
			}

			if call.guardRollback && action.Status == domain.StatusApplied && call.target == domain.StatusPending {
				result.add(BulkItemResult{ActionID: id, Status: action.Status, Error: domain.ErrRollbackViaStatusUpdate.Error()})
				logging.Debug(logCtx, "bulk item failed", slog.String("action_id", id), slog.String("reason", "rollback via status update"))
				continue
			}
			if err := domain.ValidateTransition(action.Status, call.target); err != nil {
				result.add(BulkItemResult{ActionID: id, Status: action.Status, Error: err.Error()})
				logging.Debug(logCtx, "bulk item failed", slog.String("action_id", id), slog.String("reason", err.Error()))
				continue
			}

			next, entry := s.decide(action, call.target, performedBy, call.reason, now)
			entry.Metadata = domain.HistoryMetadata{Source: call.source, BatchID: batchID}
			if err := s.persistTransition(txCtx, tx, next, entry); err != nil {
				return err
			}

			loaded[id] = next
			touched.add(next.JobID)
			result.add(BulkItemResult{ActionID: id, Success: true, Status: next.Status})
		}

		jobs, err = s.updateJobsProgress(txCtx, tx, touched.list(), now)
		return err
	}); err != nil {
		logging.Error(logCtx, "bulk transition failed", slog.Any("err", errs.Loggable(err)))
		return BulkActionResult{}, errs.Wrapf(err, "%s batch %s", operation, batchID)
	}

	s.cacheJobs(logCtx, jobs)
	logging.Info(
		logCtx,
		"bulk transition finished",
		slog.String("target", string(call.target)),
		slog.String("performed_by", performedBy),
		slog.Int("requested", result.TotalRequested),
		slog.Int("succeeded", result.SuccessCount),
		slog.Int("failed", result.FailureCount),
		slog.Int("jobs", len(jobs)),
	)
	return result, nil
}

// decide applies an already validated transition and builds its history entry.
func (s *Service) decide(action domain.Action, target domain.ActionStatus, performedBy string, reason string, now time.Time) (domain.Action, domain.HistoryEntry) {
	from := action.Status
	entry := domain.HistoryEntry{
		ID:          s.ids.NewID(),
		ActionID:    action.ID,
		EventType:   domain.EventTypeFor(from, target),
		OldStatus:   from,
		NewStatus:   target,
		PerformedBy: performedBy,
		Reason:      optionalString(reason),
		CreatedAt:   now,
	}

	switch target {
	case domain.StatusApplied:
		action.AppliedValue = cloneString(action.SuggestedValue)
		appliedAt := now
		action.AppliedAt = &appliedAt
		action.RollbackData = map[string]any{
			"originalValue": derefOrNil(action.OriginalValue),
			"appliedValue":  derefOrNil(action.SuggestedValue),
		}
		entry.OldValue = cloneString(action.OriginalValue)
		entry.NewValue = cloneString(action.AppliedValue)
	case domain.StatusRejected:
		action.Metadata.RejectionReason = strings.TrimSpace(reason)
	case domain.StatusPending:
		action.Metadata.RejectionReason = ""
	}

	if target != domain.StatusPending {
		reviewer := performedBy
		reviewedAt := now
		action.ReviewedBy = &reviewer
		action.ReviewedAt = &reviewedAt
	}
	action.Status = target
	action.UpdatedAt = now
	return action, entry
}

func (s *Service) persistTransition(ctx context.Context, tx ports.Stores, action domain.Action, entry domain.HistoryEntry) error {
	if err := tx.Actions.SaveAction(ctx, action); err != nil {
		return errs.Wrapf(err, "save action %s", action.ID)
	}
	if err := tx.History.AppendHistory(ctx, entry); err != nil {
		return errs.Wrapf(err, "append history for action %s", action.ID)
	}
	return nil
}

func (s *Service) normalizeBatch(rawIDs []string, rawPerformedBy string) ([]string, string, error) {
	ids := make([]string, 0, len(rawIDs))
	for _, id := range rawIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) == 0 {
		return nil, "", domain.ErrActionIDsRequired
	}
	if s.opts.MaxBatchSize > 0 && len(ids) > s.opts.MaxBatchSize {
		return nil, "", fmt.Errorf("%w: %d ids, limit %d", domain.ErrBatchTooLarge, len(ids), s.opts.MaxBatchSize)
	}

	performedBy := strings.TrimSpace(rawPerformedBy)
	if performedBy == "" {
		return nil, "", domain.ErrPerformedByRequired
	}
	return ids, performedBy, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func derefOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// isSoftFailure reports whether err is a per-item validation problem.
func isSoftFailure(err error) bool {
	var transitionErr *domain.TransitionError
	if errors.As(err, &transitionErr) {
		return true
	}
	return errs.IsAny(err, domain.ErrActionNotFound, domain.ErrNotApplied, domain.ErrNotReversible, domain.ErrRollbackViaStatusUpdate)
}
