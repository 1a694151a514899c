package repository

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/infrastructure/persistence/relational/model"
)

func toActionRow(action remediation.Action) (model.Action, error) {
	metadata, err := json.Marshal(action.Metadata)
	if err != nil {
		return model.Action{}, errs.Wrapf(err, "encode metadata of action %s", action.ID)
	}
	risk, err := json.Marshal(action.RiskAssessment)
	if err != nil {
		return model.Action{}, errs.Wrapf(err, "encode risk assessment of action %s", action.ID)
	}
	var rollback datatypes.JSON
	if len(action.RollbackData) > 0 {
		raw, err := json.Marshal(action.RollbackData)
		if err != nil {
			return model.Action{}, errs.Wrapf(err, "encode rollback data of action %s", action.ID)
		}
		rollback = datatypes.JSON(raw)
	}

	return model.Action{
		ID:             action.ID,
		JobID:          action.JobID,
		ViolationID:    action.ViolationID,
		RecordID:       action.RecordID,
		FieldName:      action.FieldName,
		ActionType:     action.ActionType,
		FixMethod:      action.FixMethod,
		Confidence:     action.Confidence,
		RiskLevel:      strings.ToLower(string(action.RiskAssessment.Level)),
		RiskAssessment: datatypes.JSON(risk),
		OriginalValue:  action.OriginalValue,
		SuggestedValue: action.SuggestedValue,
		AppliedValue:   action.AppliedValue,
		Status:         string(action.Status),
		ReviewedBy:     action.ReviewedBy,
		ReviewedAt:     action.ReviewedAt,
		Metadata:       datatypes.JSON(metadata),
		RollbackData:   rollback,
		CreatedAt:      action.CreatedAt.UTC(),
		AppliedAt:      action.AppliedAt,
		UpdatedAt:      action.UpdatedAt.UTC(),
	}, nil
}

func fromActionRow(row model.Action) (remediation.Action, error) {
	action := remediation.Action{
		ID:             row.ID,
		JobID:          row.JobID,
		ViolationID:    row.ViolationID,
		RecordID:       row.RecordID,
		FieldName:      row.FieldName,
		ActionType:     row.ActionType,
		FixMethod:      row.FixMethod,
		Confidence:     row.Confidence,
		OriginalValue:  row.OriginalValue,
		SuggestedValue: row.SuggestedValue,
		AppliedValue:   row.AppliedValue,
		Status:         remediation.ActionStatus(row.Status),
		ReviewedBy:     row.ReviewedBy,
		ReviewedAt:     row.ReviewedAt,
		CreatedAt:      row.CreatedAt,
		AppliedAt:      row.AppliedAt,
		UpdatedAt:      row.UpdatedAt,
	}

	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &action.Metadata); err != nil {
			return remediation.Action{}, errs.Wrapf(err, "decode metadata of action %s", row.ID)
		}
	}
	if len(row.RiskAssessment) > 0 {
		if err := json.Unmarshal(row.RiskAssessment, &action.RiskAssessment); err != nil {
			return remediation.Action{}, errs.Wrapf(err, "decode risk assessment of action %s", row.ID)
		}
	}
	if len(row.RollbackData) > 0 {
		if err := json.Unmarshal(row.RollbackData, &action.RollbackData); err != nil {
			return remediation.Action{}, errs.Wrapf(err, "decode rollback data of action %s", row.ID)
		}
	}
	return action, nil
}

func toHistoryRow(entry remediation.HistoryEntry) (model.HistoryEntry, error) {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return model.HistoryEntry{}, errs.Wrapf(err, "encode metadata of history entry %s", entry.ID)
	}

	var batchID *string
	if trimmed := strings.TrimSpace(entry.Metadata.BatchID); trimmed != "" {
		batchID = &trimmed
	}

	return model.HistoryEntry{
		ID:          entry.ID,
		ActionID:    entry.ActionID,
		BatchID:     batchID,
		EventType:   string(entry.EventType),
		OldStatus:   string(entry.OldStatus),
		NewStatus:   string(entry.NewStatus),
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		PerformedBy: entry.PerformedBy,
		Reason:      entry.Reason,
		Metadata:    datatypes.JSON(metadata),
		CreatedAt:   entry.CreatedAt.UTC(),
	}, nil
}

func fromHistoryRow(row model.HistoryEntry) (remediation.HistoryEntry, error) {
	entry := remediation.HistoryEntry{
		ID:          row.ID,
		ActionID:    row.ActionID,
		EventType:   remediation.EventType(row.EventType),
		OldStatus:   remediation.ActionStatus(row.OldStatus),
		NewStatus:   remediation.ActionStatus(row.NewStatus),
		OldValue:    row.OldValue,
		NewValue:    row.NewValue,
		PerformedBy: row.PerformedBy,
		Reason:      row.Reason,
		CreatedAt:   row.CreatedAt,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &entry.Metadata); err != nil {
			return remediation.HistoryEntry{}, errs.Wrapf(err, "decode metadata of history entry %s", row.ID)
		}
	}
	return entry, nil
}

func toJobRow(job remediation.Job) model.Job {
	return model.Job{
		ID:              job.ID,
		Name:            job.Name,
		TotalViolations: job.TotalViolations,
		FixedViolations: job.FixedViolations,
		RejectedCount:   job.RejectedCount,
		SkippedCount:    job.SkippedCount,
		Status:          string(job.Status),
		CompletedAt:     job.CompletedAt,
		CreatedAt:       job.CreatedAt.UTC(),
		UpdatedAt:       job.UpdatedAt.UTC(),
	}
}

func fromJobRow(row model.Job) remediation.Job {
	return remediation.Job{
		ID:              row.ID,
		Name:            row.Name,
		TotalViolations: row.TotalViolations,
		FixedViolations: row.FixedViolations,
		RejectedCount:   row.RejectedCount,
		SkippedCount:    row.SkippedCount,
		Status:          remediation.JobStatus(row.Status),
		CompletedAt:     row.CompletedAt,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}
