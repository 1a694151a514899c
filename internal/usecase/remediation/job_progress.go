package remediation

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"remedy/internal/bootstrap/logging"
	domain "remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/ports"
)

type JobProgress struct {
	Job             domain.Job          `json:"-"`
	JobID           string              `json:"jobId"`
	Status          domain.JobStatus    `json:"status"`
	TotalViolations int                 `json:"totalViolations"`
	FixedViolations int                 `json:"fixedViolations"`
	RejectedCount   int                 `json:"rejectedCount"`
	SkippedCount    int                 `json:"skippedCount"`
	Breakdown       domain.StatusCounts `json:"breakdown"`
	PercentComplete float64             `json:"percentComplete"`
	CompletedAt     *time.Time          `json:"completedAt,omitempty"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func newJobProgress(job domain.Job, counts domain.StatusCounts) JobProgress {
	return JobProgress{
		Job:             job,
		JobID:           job.ID,
		Status:          job.Status,
		TotalViolations: job.TotalViolations,
		FixedViolations: job.FixedViolations,
		RejectedCount:   job.RejectedCount,
		SkippedCount:    job.SkippedCount,
		Breakdown:       counts,
		PercentComplete: domain.PercentComplete(job),
		CompletedAt:     job.CompletedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

// UpdateJobsProgress recomputes the given jobs from their action rows in one transaction.
func (s *Service) UpdateJobsProgress(ctx context.Context, jobIDs []string) ([]JobProgress, error) {
	if err := s.checkWrite(ctx); err != nil {
		return nil, err
	}
	set := newJobSet()
	for _, id := range jobIDs {
		set.add(id)
	}
	ids := set.list()
	if len(ids) == 0 {
		return nil, errors.New("job ids are required")
	}

	logCtx := logging.WithOperation(logging.WithAttrs(ctx, slog.String("component", "usecase.remediation")), "update_jobs_progress", "")
	now := s.now()

	var out []JobProgress
	if err := s.uow.WithTx(ctx, func(txCtx context.Context, tx ports.Stores) error {
		existing, err := tx.Jobs.GetJobsByIDs(txCtx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := existing[id]; !ok {
				return errs.Wrapf(domain.ErrJobNotFound, "job %s", id)
			}
		}

		jobs, err := s.updateJobsProgress(txCtx, tx, ids, now)
		if err != nil {
			return err
		}
		out = make([]JobProgress, 0, len(jobs))
		for _, job := range jobs {
			counts, err := tx.Actions.CountStatusesByJob(txCtx, job.ID)
			if err != nil {
				return err
			}
			out = append(out, newJobProgress(job, counts))
		}
		return nil
	}); err != nil {
		logging.Error(logCtx, "update jobs progress failed", slog.Any("err", errs.Loggable(err)))
		return nil, err
	}

	jobs := make([]domain.Job, 0, len(out))
	for _, progress := range out {
		jobs = append(jobs, progress.Job)
	}
	s.cacheJobs(logCtx, jobs)
	logging.Info(logCtx, "jobs progress updated", slog.Int("jobs", len(out)))
	return out, nil
}

// RecomputeJob is UpdateJobsProgress for one job.
func (s *Service) RecomputeJob(ctx context.Context, jobID string) (JobProgress, error) {
	out, err := s.UpdateJobsProgress(ctx, []string{jobID})
	if err != nil {
		return JobProgress{}, err
	}
	return out[0], nil
}

// GetJobProgress reads a job with its live status breakdown.
func (s *Service) GetJobProgress(ctx context.Context, jobID string) (JobProgress, error) {
	if err := s.checkRead(ctx); err != nil {
		return JobProgress{}, err
	}
	id := strings.TrimSpace(jobID)
	job, err := s.stores.Jobs.GetJob(ctx, id)
	if err != nil {
		return JobProgress{}, err
	}
	counts, err := s.stores.Actions.CountStatusesByJob(ctx, id)
	if err != nil {
		return JobProgress{}, err
	}
	return newJobProgress(job, counts), nil
}

// PeekJobStatus returns the cached job status, falling back to the store.
func (s *Service) PeekJobStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	if err := s.checkRead(ctx); err != nil {
		return "", err
	}
	id := strings.TrimSpace(jobID)
	if s.cache != nil {
		if value, found, err := s.cache.Get(ctx, jobStatusKey(id)); err == nil && found {
			return domain.JobStatus(value), nil
		}
	}
	job, err := s.stores.Jobs.GetJob(ctx, id)
	if err != nil {
		return "", err
	}
	return job.Status, nil
}

// updateJobsProgress runs inside the caller's transaction. Jobs missing from
// the store are skipped; counters are always overwritten, never incremented.
func (s *Service) updateJobsProgress(ctx context.Context, tx ports.Stores, jobIDs []string, now time.Time) ([]domain.Job, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}

	jobs, err := tx.Jobs.GetJobsByIDs(ctx, jobIDs)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Job, 0, len(jobIDs))
	for _, id := range jobIDs {
		job, ok := jobs[id]
		if !ok {
			logging.Warn(ctx, "job missing during progress update", slog.String("job_id", id))
			continue
		}

		counts, err := tx.Actions.CountStatusesByJob(ctx, id)
		if err != nil {
			return nil, err
		}
		updated := domain.RecomputeProgress(job, counts, now)
		if err := tx.Jobs.SaveJobProgress(ctx, updated); err != nil {
			return nil, errs.Wrapf(err, "save progress of job %s", id)
		}
		out = append(out, updated)
	}
	return out, nil
}

// cacheJobs writes job snapshots after commit. Failures are logged only.
func (s *Service) cacheJobs(ctx context.Context, jobs []domain.Job) {
	if s.cache == nil {
		return
	}
	for _, job := range jobs {
		if err := s.cache.Set(ctx, jobStatusKey(job.ID), string(job.Status), s.opts.CacheTTL); err != nil {
			logging.Warn(ctx, "cache job status failed", slog.String("job_id", job.ID), slog.Any("err", errs.Loggable(err)))
			continue
		}
		percent := strconv.FormatFloat(domain.PercentComplete(job), 'f', 1, 64)
		if err := s.cache.Set(ctx, jobProgressKey(job.ID), percent, s.opts.CacheTTL); err != nil {
			logging.Warn(ctx, "cache job progress failed", slog.String("job_id", job.ID), slog.Any("err", errs.Loggable(err)))
		}
	}
}

func jobStatusKey(jobID string) string   { return "job_status:" + jobID }
func jobProgressKey(jobID string) string { return "job_progress:" + jobID }

// jobSet collects distinct job ids; list returns them sorted.
type jobSet map[string]struct{}

func newJobSet() jobSet { return make(jobSet) }

func (s jobSet) add(id string) {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		s[trimmed] = struct{}{}
	}
}

func (s jobSet) list() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
