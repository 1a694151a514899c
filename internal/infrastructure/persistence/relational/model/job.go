package model

import "time"

type Job struct {
	ID              string     `gorm:"column:id;type:text;primaryKey"`
	Name            string     `gorm:"column:name;type:text;not null;default:''"`
	TotalViolations int        `gorm:"column:total_violations;not null;default:0"`
	FixedViolations int        `gorm:"column:fixed_violations;not null;default:0"`
	RejectedCount   int        `gorm:"column:rejected_count;not null;default:0"`
	SkippedCount    int        `gorm:"column:skipped_count;not null;default:0"`
	Status          string     `gorm:"column:status;type:text;not null;index"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Job) TableName() string {
	return "remediation_jobs"
}
