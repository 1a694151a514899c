package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/infrastructure/persistence/relational/model"
	"remedy/internal/ports"
)

type JobRepository struct {
	db *gorm.DB
}

var _ ports.JobStore = (*JobRepository)(nil)

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) CreateJob(ctx context.Context, job remediation.Job) error {
	row := toJobRow(job)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert remediation job")
	}
	return nil
}

func (r *JobRepository) GetJob(ctx context.Context, jobID string) (remediation.Job, error) {
	var row model.Job
	if err := r.db.WithContext(ctx).Where("id = ?", jobID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return remediation.Job{}, remediation.ErrJobNotFound
		}
		return remediation.Job{}, errs.Wrap(err, "query remediation job")
	}
	return fromJobRow(row), nil
}

func (r *JobRepository) GetJobsByIDs(ctx context.Context, jobIDs []string) (map[string]remediation.Job, error) {
	out := make(map[string]remediation.Job, len(jobIDs))
	if len(jobIDs) == 0 {
		return out, nil
	}

	var rows []model.Job
	if err := r.db.WithContext(ctx).Where("id IN ?", jobIDs).Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query remediation jobs")
	}
	for _, row := range rows {
		out[row.ID] = fromJobRow(row)
	}
	return out, nil
}

// SaveJobProgress writes the derived counters and completion fields only.
func (r *JobRepository) SaveJobProgress(ctx context.Context, job remediation.Job) error {
	result := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"fixed_violations": job.FixedViolations,
			"rejected_count":   job.RejectedCount,
			"skipped_count":    job.SkippedCount,
			"status":           string(job.Status),
			"completed_at":     job.CompletedAt,
			"updated_at":       job.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update remediation job progress")
	}
	if result.RowsAffected == 0 {
		return remediation.ErrJobNotFound
	}
	return nil
}
