package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/infrastructure/persistence/relational/model"
	"remedy/internal/ports"
)

type ActionRepository struct {
	db *gorm.DB
}

var _ ports.ActionStore = (*ActionRepository)(nil)

func NewActionRepository(db *gorm.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

func (r *ActionRepository) CreateActions(ctx context.Context, actions []remediation.Action) error {
	if len(actions) == 0 {
		return nil
	}

	rows := make([]model.Action, 0, len(actions))
	for _, action := range actions {
		row, err := toActionRow(action)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return errs.Wrap(err, "insert remediation actions")
	}
	return nil
}

func (r *ActionRepository) GetAction(ctx context.Context, actionID string) (remediation.Action, error) {
	var row model.Action
	if err := r.db.WithContext(ctx).Where("id = ?", actionID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return remediation.Action{}, remediation.ErrActionNotFound
		}
		return remediation.Action{}, errs.Wrap(err, "query remediation action")
	}
	return fromActionRow(row)
}

func (r *ActionRepository) GetActionsForUpdate(ctx context.Context, actionIDs []string) (map[string]remediation.Action, error) {
	out := make(map[string]remediation.Action, len(actionIDs))
	if len(actionIDs) == 0 {
		return out, nil
	}

	query := r.db.WithContext(ctx).Where("id IN ?", actionIDs)
	if supportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []model.Action
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query remediation actions for update")
	}

	for _, row := range rows {
		action, err := fromActionRow(row)
		if err != nil {
			return nil, err
		}
		out[action.ID] = action
	}
	return out, nil
}

func (r *ActionRepository) SaveAction(ctx context.Context, action remediation.Action) error {
	row, err := toActionRow(action)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&model.Action{}).
		Where("id = ?", action.ID).
		Select("*").
		Omit("ID", "CreatedAt").
		Updates(&row)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update remediation action")
	}
	if result.RowsAffected == 0 {
		return remediation.ErrActionNotFound
	}
	return nil
}

func (r *ActionRepository) ListActions(ctx context.Context, filter ports.ActionFilter) ([]remediation.Action, int64, error) {
	base := applyActionFilter(r.db.WithContext(ctx).Model(&model.Action{}), filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, errs.Wrap(err, "count remediation actions")
	}

	query := base.Session(&gorm.Session{}).Order("created_at desc").Order("id desc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []model.Action
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, errs.Wrap(err, "query remediation actions")
	}

	items := make([]remediation.Action, 0, len(rows))
	for _, row := range rows {
		action, err := fromActionRow(row)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, action)
	}
	return items, total, nil
}

type statusCountRow struct {
	Status string
	Count  int64
}

type confidenceRow struct {
	Average *float64
	High    int64
	Medium  int64
	Low     int64
}

func (r *ActionRepository) SummarizeActions(ctx context.Context, filter ports.ActionFilter) (ports.ActionStats, error) {
	db := r.db.WithContext(ctx)

	var statusRows []statusCountRow
	if err := applyActionFilter(db.Model(&model.Action{}), filter).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return ports.ActionStats{}, errs.Wrap(err, "aggregate action statuses")
	}

	stats := ports.ActionStats{StatusCounts: make(remediation.StatusCounts, len(statusRows))}
	for _, row := range statusRows {
		stats.StatusCounts[remediation.ActionStatus(row.Status)] = int(row.Count)
		stats.Total += row.Count
	}
	if stats.Total == 0 {
		return stats, nil
	}

	var conf confidenceRow
	if err := applyActionFilter(db.Model(&model.Action{}), filter).
		Select(
			"AVG(confidence) AS average, "+
				"COALESCE(SUM(CASE WHEN confidence >= ? THEN 1 ELSE 0 END), 0) AS high, "+
				"COALESCE(SUM(CASE WHEN confidence >= ? AND confidence < ? THEN 1 ELSE 0 END), 0) AS medium, "+
				"COALESCE(SUM(CASE WHEN confidence < ? THEN 1 ELSE 0 END), 0) AS low",
			remediation.HighConfidenceThreshold,
			remediation.MediumConfidenceThreshold,
			remediation.HighConfidenceThreshold,
			remediation.MediumConfidenceThreshold,
		).
		Scan(&conf).Error; err != nil {
		return ports.ActionStats{}, errs.Wrap(err, "aggregate action confidence")
	}

	if conf.Average != nil {
		stats.AverageConfidence = *conf.Average
	}
	stats.HighConfidence = conf.High
	stats.MediumConfidence = conf.Medium
	stats.LowConfidence = conf.Low
	return stats, nil
}

func (r *ActionRepository) CountStatusesByJob(ctx context.Context, jobID string) (remediation.StatusCounts, error) {
	var rows []statusCountRow
	if err := r.db.WithContext(ctx).
		Model(&model.Action{}).
		Where("job_id = ?", jobID).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "count action statuses by job")
	}

	counts := make(remediation.StatusCounts, len(rows))
	for _, row := range rows {
		counts[remediation.ActionStatus(row.Status)] = int(row.Count)
	}
	return counts, nil
}

func applyActionFilter(query *gorm.DB, filter ports.ActionFilter) *gorm.DB {
	if jobID := strings.TrimSpace(filter.JobID); jobID != "" {
		query = query.Where("job_id = ?", jobID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(filter.Statuses))
	}
	if len(filter.FixMethods) > 0 {
		query = query.Where("fix_method IN ?", filter.FixMethods)
	}
	if len(filter.RiskLevels) > 0 {
		levels := make([]string, 0, len(filter.RiskLevels))
		for _, level := range filter.RiskLevels {
			levels = append(levels, string(level))
		}
		query = query.Where("risk_level IN ?", levels)
	}
	if filter.MinConfidence != nil {
		query = query.Where("confidence >= ?", *filter.MinConfidence)
	}
	if filter.MaxConfidence != nil {
		query = query.Where("confidence <= ?", *filter.MaxConfidence)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", filter.CreatedTo.UTC())
	}
	return query
}

func statusStrings(statuses []remediation.ActionStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

// supportsRowLocks is false for sqlite, which serializes writers per database.
func supportsRowLocks(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	return db.Dialector.Name() != "sqlite"
}
