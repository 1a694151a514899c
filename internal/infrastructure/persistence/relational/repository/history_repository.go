package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"remedy/internal/domain/remediation"
	"remedy/internal/errs"
	"remedy/internal/infrastructure/persistence/relational/model"
	"remedy/internal/ports"
)

// HistoryRepository only inserts and reads; rows are never updated or deleted.
type HistoryRepository struct {
	db *gorm.DB
}

var _ ports.HistoryStore = (*HistoryRepository)(nil)

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) AppendHistory(ctx context.Context, entry remediation.HistoryEntry) error {
	row, err := toHistoryRow(entry)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert remediation history")
	}
	return nil
}

func (r *HistoryRepository) ListHistory(ctx context.Context, filter ports.HistoryFilter) ([]remediation.HistoryEntry, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.HistoryEntry{})
	if actionID := strings.TrimSpace(filter.ActionID); actionID != "" {
		base = base.Where("action_id = ?", actionID)
	}
	if batchID := strings.TrimSpace(filter.BatchID); batchID != "" {
		base = base.Where("batch_id = ?", batchID)
	}
	if len(filter.EventTypes) > 0 {
		events := make([]string, 0, len(filter.EventTypes))
		for _, event := range filter.EventTypes {
			events = append(events, string(event))
		}
		base = base.Where("event_type IN ?", events)
	}
	if performedBy := strings.TrimSpace(filter.PerformedBy); performedBy != "" {
		base = base.Where("performed_by = ?", performedBy)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, errs.Wrap(err, "count remediation history")
	}

	query := base.Session(&gorm.Session{})
	if filter.Ascending {
		query = query.Order("created_at asc").Order("id asc")
	} else {
		query = query.Order("created_at desc").Order("id desc")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []model.HistoryEntry
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, errs.Wrap(err, "query remediation history")
	}

	items := make([]remediation.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := fromHistoryRow(row)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, entry)
	}
	return items, total, nil
}
