package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"remedy/internal/bootstrap/logging"
	domain "remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/ports"
)

// Plan is the detection-side hand-off: jobs with their proposed actions.
type Plan struct {
	Jobs []PlanJob `toml:"jobs"`
}

type PlanJob struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	// TotalViolations defaults to the number of actions.
	TotalViolations int          `toml:"total_violations"`
	Actions         []PlanAction `toml:"actions"`
}

type PlanAction struct {
	ID             string         `toml:"id"`
	ViolationID    string         `toml:"violation_id"`
	RecordID       string         `toml:"record_id"`
	FieldName      string         `toml:"field_name"`
	ActionType     string         `toml:"action_type"`
	FixMethod      string         `toml:"fix_method"`
	Confidence     float64        `toml:"confidence"`
	RiskLevel      string         `toml:"risk_level"`
	RiskScore      float64        `toml:"risk_score"`
	RiskFactors    []string       `toml:"risk_factors"`
	OriginalValue  *string        `toml:"original_value"`
	SuggestedValue *string        `toml:"suggested_value"`
	Status         string         `toml:"status"`
	Reversible     bool           `toml:"reversible"`
	Metadata       map[string]any `toml:"metadata"`
}

type ImportResult struct {
	JobIDs      []string `json:"jobIds"`
	ActionCount int      `json:"actionCount"`
}

func LoadPlanFile(path string) (Plan, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Plan{}, errors.New("plan file is required")
	}
	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return Plan{}, errs.Wrapf(err, "read plan file %s", trimmed)
	}
	return ParsePlan(raw)
}

func ParsePlan(raw []byte) (Plan, error) {
	var plan Plan
	if err := toml.Unmarshal(raw, &plan); err != nil {
		return Plan{}, errs.Wrap(err, "decode plan")
	}
	return plan, nil
}

// ImportPlan creates every job and action of plan in one transaction. Jobs
// start in_progress; actions must start pending or requires_review.
func (s *Service) ImportPlan(ctx context.Context, plan Plan) (ImportResult, error) {
	if err := s.checkWrite(ctx); err != nil {
		return ImportResult{}, err
	}
	if len(plan.Jobs) == 0 {
		return ImportResult{}, errors.New("plan has no jobs")
	}

	now := s.now()
	jobs := make([]domain.Job, 0, len(plan.Jobs))
	actionsByJob := make([][]domain.Action, 0, len(plan.Jobs))
	total := 0
	for i, pj := range plan.Jobs {
		job, actions, err := s.buildJob(pj, now)
		if err != nil {
			return ImportResult{}, errs.Wrapf(err, "jobs[%d]", i)
		}
		jobs = append(jobs, job)
		actionsByJob = append(actionsByJob, actions)
		total += len(actions)
	}

	logCtx := logging.WithOperation(logging.WithAttrs(ctx, slog.String("component", "usecase.remediation")), "import_plan", "")
	if err := s.uow.WithTx(ctx, func(txCtx context.Context, tx ports.Stores) error {
		for i, job := range jobs {
			if err := tx.Jobs.CreateJob(txCtx, job); err != nil {
				return errs.Wrapf(err, "create job %s", job.ID)
			}
			if err := tx.Actions.CreateActions(txCtx, actionsByJob[i]); err != nil {
				return errs.Wrapf(err, "create actions of job %s", job.ID)
			}
		}
		return nil
	}); err != nil {
		logging.Error(logCtx, "import plan failed", slog.Any("err", errs.Loggable(err)))
		return ImportResult{}, err
	}

	result := ImportResult{JobIDs: make([]string, 0, len(jobs)), ActionCount: total}
	for _, job := range jobs {
		result.JobIDs = append(result.JobIDs, job.ID)
	}
	s.cacheJobs(logCtx, jobs)
	logging.Info(logCtx, "plan imported", slog.Int("jobs", len(jobs)), slog.Int("actions", total))
	return result, nil
}

func (s *Service) buildJob(pj PlanJob, now time.Time) (domain.Job, []domain.Action, error) {
	jobID := strings.TrimSpace(pj.ID)
	if jobID == "" {
		jobID = s.ids.NewID()
	}
	if pj.TotalViolations < 0 {
		return domain.Job{}, nil, fmt.Errorf("total_violations must be >= 0, got %d", pj.TotalViolations)
	}

	actions := make([]domain.Action, 0, len(pj.Actions))
	for i, pa := range pj.Actions {
		action, err := s.buildAction(jobID, pa, now)
		if err != nil {
			return domain.Job{}, nil, errs.Wrapf(err, "actions[%d]", i)
		}
		actions = append(actions, action)
	}

	total := pj.TotalViolations
	if total == 0 {
		total = len(actions)
	}
	return domain.Job{
		ID:              jobID,
		Name:            strings.TrimSpace(pj.Name),
		TotalViolations: total,
		Status:          domain.JobInProgress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, actions, nil
}

func (s *Service) buildAction(jobID string, pa PlanAction, now time.Time) (domain.Action, error) {
	status := domain.StatusPending
	if raw := strings.TrimSpace(pa.Status); raw != "" {
		parsed, err := domain.ParseActionStatus(raw)
		if err != nil {
			return domain.Action{}, err
		}
		status = parsed
	}
	if !status.IsInitial() {
		return domain.Action{}, fmt.Errorf("%w: actions start pending or requires_review, got %s", domain.ErrInvalidStatus, status)
	}
	if math.IsNaN(pa.Confidence) || pa.Confidence < 0 || pa.Confidence > 1 {
		return domain.Action{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfidence, pa.Confidence)
	}
	for field, value := range map[string]string{
		"violation_id": pa.ViolationID,
		"record_id":    pa.RecordID,
		"field_name":   pa.FieldName,
		"action_type":  pa.ActionType,
		"fix_method":   pa.FixMethod,
	} {
		if strings.TrimSpace(value) == "" {
			return domain.Action{}, fmt.Errorf("%s is required", field)
		}
	}

	id := strings.TrimSpace(pa.ID)
	if id == "" {
		id = s.ids.NewID()
	}

	metadata := domain.ActionMetadata{
		FixResult: &domain.FixResult{Metadata: domain.ReversibilityInfo{Reversible: pa.Reversible}},
	}
	if len(pa.Metadata) > 0 {
		metadata.Extra = pa.Metadata
	}

	return domain.Action{
		ID:          id,
		JobID:       jobID,
		ViolationID: strings.TrimSpace(pa.ViolationID),
		RecordID:    strings.TrimSpace(pa.RecordID),
		FieldName:   strings.TrimSpace(pa.FieldName),
		ActionType:  strings.TrimSpace(pa.ActionType),
		FixMethod:   strings.TrimSpace(pa.FixMethod),
		Confidence:  pa.Confidence,
		RiskAssessment: domain.RiskAssessment{
			Level:   domain.RiskLevel(strings.ToLower(strings.TrimSpace(pa.RiskLevel))),
			Score:   pa.RiskScore,
			Factors: pa.RiskFactors,
		},
		OriginalValue:  cloneString(pa.OriginalValue),
		SuggestedValue: cloneString(pa.SuggestedValue),
		Status:         status,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
