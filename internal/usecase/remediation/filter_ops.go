package remediation

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "remedy/internal/domain/remediation"
	"remedy/internal/ports"
)

type ActionQuery struct {
	JobID         string
	Statuses      []domain.ActionStatus
	FixMethods    []string
	RiskLevels    []domain.RiskLevel
	MinConfidence *float64
	MaxConfidence *float64
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// ActionView is the read projection of an action.
type ActionView struct {
	ID             string                `json:"id"`
	JobID          string                `json:"jobId"`
	ViolationID    string                `json:"violationId"`
	RecordID       string                `json:"recordId"`
	FieldName      string                `json:"fieldName"`
	ActionType     string                `json:"actionType"`
	FixMethod      string                `json:"fixMethod"`
	Confidence     float64               `json:"confidence"`
	RiskAssessment domain.RiskAssessment `json:"riskAssessment"`
	OriginalValue  *string               `json:"originalValue,omitempty"`
	SuggestedValue *string               `json:"suggestedValue,omitempty"`
	AppliedValue   *string               `json:"appliedValue,omitempty"`
	Status         domain.ActionStatus   `json:"status"`
	ReviewedBy     *string               `json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time            `json:"reviewedAt,omitempty"`
	Metadata       domain.ActionMetadata `json:"metadata"`
	RollbackData   map[string]any        `json:"rollbackData,omitempty"`
	Reversible     bool                  `json:"reversible"`
	CreatedAt      time.Time             `json:"createdAt"`
	AppliedAt      *time.Time            `json:"appliedAt,omitempty"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

func NewActionView(action domain.Action) ActionView {
	return ActionView{
		ID:             action.ID,
		JobID:          action.JobID,
		ViolationID:    action.ViolationID,
		RecordID:       action.RecordID,
		FieldName:      action.FieldName,
		ActionType:     action.ActionType,
		FixMethod:      action.FixMethod,
		Confidence:     action.Confidence,
		RiskAssessment: action.RiskAssessment,
		OriginalValue:  action.OriginalValue,
		SuggestedValue: action.SuggestedValue,
		AppliedValue:   action.AppliedValue,
		Status:         action.Status,
		ReviewedBy:     action.ReviewedBy,
		ReviewedAt:     action.ReviewedAt,
		Metadata:       action.Metadata,
		RollbackData:   action.RollbackData,
		Reversible:     action.Metadata.Reversible(),
		CreatedAt:      action.CreatedAt,
		AppliedAt:      action.AppliedAt,
		UpdatedAt:      action.UpdatedAt,
	}
}

type ConfidenceStats struct {
	Average float64 `json:"average"`
	High    int64   `json:"high"`
	Medium  int64   `json:"medium"`
	Low     int64   `json:"low"`
}

type ActionSummary struct {
	StatusBreakdown domain.StatusCounts `json:"statusBreakdown"`
	Confidence      ConfidenceStats     `json:"confidence"`
}

type ActionPage struct {
	Actions []ActionView  `json:"actions"`
	Total   int64         `json:"total"`
	Summary ActionSummary `json:"summary"`
}

// GetActionsByFilter returns one page of matching actions, newest first, and a
// summary computed over the whole matching set.
func (s *Service) GetActionsByFilter(ctx context.Context, query ActionQuery) (ActionPage, error) {
	if err := s.checkRead(ctx); err != nil {
		return ActionPage{}, err
	}
	filter, err := s.toActionFilter(query)
	if err != nil {
		return ActionPage{}, err
	}

	actions, total, err := s.stores.Actions.ListActions(ctx, filter)
	if err != nil {
		return ActionPage{}, err
	}
	stats, err := s.stores.Actions.SummarizeActions(ctx, filter)
	if err != nil {
		return ActionPage{}, err
	}

	page := ActionPage{
		Actions: make([]ActionView, 0, len(actions)),
		Total:   total,
		Summary: ActionSummary{
			StatusBreakdown: stats.StatusCounts,
			Confidence: ConfidenceStats{
				Average: stats.AverageConfidence,
				High:    stats.HighConfidence,
				Medium:  stats.MediumConfidence,
				Low:     stats.LowConfidence,
			},
		},
	}
	for _, action := range actions {
		page.Actions = append(page.Actions, NewActionView(action))
	}
	return page, nil
}

// GetAction loads a single action.
func (s *Service) GetAction(ctx context.Context, actionID string) (ActionView, error) {
	if err := s.checkRead(ctx); err != nil {
		return ActionView{}, err
	}
	action, err := s.stores.Actions.GetAction(ctx, strings.TrimSpace(actionID))
	if err != nil {
		return ActionView{}, err
	}
	return NewActionView(action), nil
}

func (s *Service) toActionFilter(query ActionQuery) (ports.ActionFilter, error) {
	for _, status := range query.Statuses {
		if !status.Valid() {
			return ports.ActionFilter{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
		}
	}
	for _, bound := range []*float64{query.MinConfidence, query.MaxConfidence} {
		if bound != nil && (*bound < 0 || *bound > 1) {
			return ports.ActionFilter{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfidence, *bound)
		}
	}
	if query.MinConfidence != nil && query.MaxConfidence != nil && *query.MinConfidence > *query.MaxConfidence {
		return ports.ActionFilter{}, fmt.Errorf("min confidence %v exceeds max confidence %v", *query.MinConfidence, *query.MaxConfidence)
	}
	if query.CreatedFrom != nil && query.CreatedTo != nil && query.CreatedFrom.After(*query.CreatedTo) {
		return ports.ActionFilter{}, fmt.Errorf("date range start %s is after end %s", query.CreatedFrom.Format(time.RFC3339), query.CreatedTo.Format(time.RFC3339))
	}

	methods := make([]string, 0, len(query.FixMethods))
	for _, method := range query.FixMethods {
		if trimmed := strings.TrimSpace(method); trimmed != "" {
			methods = append(methods, trimmed)
		}
	}
	levels := make([]domain.RiskLevel, 0, len(query.RiskLevels))
	for _, level := range query.RiskLevels {
		if trimmed := strings.ToLower(strings.TrimSpace(string(level))); trimmed != "" {
			levels = append(levels, domain.RiskLevel(trimmed))
		}
	}

	return ports.ActionFilter{
		JobID:         strings.TrimSpace(query.JobID),
		Statuses:      query.Statuses,
		FixMethods:    methods,
		RiskLevels:    levels,
		MinConfidence: query.MinConfidence,
		MaxConfidence: query.MaxConfidence,
		CreatedFrom:   query.CreatedFrom,
		CreatedTo:     query.CreatedTo,
		Limit:         s.pageSize(query.Limit),
		Offset:        max(query.Offset, 0),
	}, nil
}
