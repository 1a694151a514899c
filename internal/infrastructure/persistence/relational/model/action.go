package model

import (
	"time"

	"gorm.io/datatypes"
)

type Action struct {
	ID          string `gorm:"column:id;type:text;primaryKey"`
	JobID       string `gorm:"column:job_id;type:text;not null;index"`
	ViolationID string `gorm:"column:violation_id;type:text;not null;index"`
	RecordID    string `gorm:"column:record_id;type:text;not null"`
	FieldName   string `gorm:"column:field_name;type:text;not null"`

	ActionType     string         `gorm:"column:action_type;type:text;not null"`
	FixMethod      string         `gorm:"column:fix_method;type:text;not null;index"`
	Confidence     float64        `gorm:"column:confidence;not null;default:0"`
	RiskLevel      string         `gorm:"column:risk_level;type:text;not null;default:'';index"`
	RiskAssessment datatypes.JSON `gorm:"column:risk_assessment"`

	OriginalValue  *string `gorm:"column:original_value;type:text"`
	SuggestedValue *string `gorm:"column:suggested_value;type:text"`
	AppliedValue   *string `gorm:"column:applied_value;type:text"`

	Status     string     `gorm:"column:status;type:text;not null;index"`
	ReviewedBy *string    `gorm:"column:reviewed_by;type:text"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`

	Metadata     datatypes.JSON `gorm:"column:metadata"`
	RollbackData datatypes.JSON `gorm:"column:rollback_data"`

	CreatedAt time.Time  `gorm:"column:created_at;not null;index;autoCreateTime:false"`
	AppliedAt *time.Time `gorm:"column:applied_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Action) TableName() string {
	return "remediation_actions"
}
