package model

import (
	"time"

	"gorm.io/datatypes"
)

// HistoryEntry rows are inserted once and never updated.
type HistoryEntry struct {
	ID          string         `gorm:"column:id;type:text;primaryKey"`
	ActionID    string         `gorm:"column:action_id;type:text;not null;index"`
	BatchID     *string        `gorm:"column:batch_id;type:text;index"`
	EventType   string         `gorm:"column:event_type;type:text;not null;index"`
	OldStatus   string         `gorm:"column:old_status;type:text;not null"`
	NewStatus   string         `gorm:"column:new_status;type:text;not null"`
	OldValue    *string        `gorm:"column:old_value;type:text"`
	NewValue    *string        `gorm:"column:new_value;type:text"`
	PerformedBy string         `gorm:"column:performed_by;type:text;not null;index"`
	Reason      *string        `gorm:"column:reason;type:text"`
	Metadata    datatypes.JSON `gorm:"column:metadata"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null;index;autoCreateTime:false"`
}

func (HistoryEntry) TableName() string {
	return "remediation_history"
}
