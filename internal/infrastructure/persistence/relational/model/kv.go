package model

import "time"

// KV backs the best-effort cache. ExpiresAt nil means no expiry.
type KV struct {
	Key       string     `gorm:"column:key;type:text;primaryKey"`
	Value     string     `gorm:"column:value;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (KV) TableName() string {
	return "remediation_kv"
}
