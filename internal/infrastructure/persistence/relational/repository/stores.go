package repository

import (
	"gorm.io/gorm"

	"remedy/internal/ports"
)

// NewStores binds the three remediation stores to db, which may be a transaction.
func NewStores(db *gorm.DB) ports.Stores {
	return ports.Stores{
		Actions: NewActionRepository(db),
		History: NewHistoryRepository(db),
		Jobs:    NewJobRepository(db),
	}
}
