package uow

import (
	"context"

	"gorm.io/gorm"

	"remedy/internal/errs"
	"remedy/internal/infrastructure/persistence/relational/repository"
	"remedy/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork with gorm transactions.
type UnitOfWork struct {
	db *gorm.DB
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context, tx ports.Stores) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, repository.NewStores(tx))
	})
	return errs.WithStack(err)
}
