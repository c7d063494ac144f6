package uow

import (
	"context"

	"gorm.io/gorm"

	"superlot/internal/errs"
	"superlot/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork with gorm. SQLite serializes
// writers, so a draw and a concurrent notification commit never interleave
// their writes.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithTx runs fn inside one transaction. A failed transaction is the root
// cause boundary for most write paths, so the stack is captured here once;
// callers keep wrapping with errs.Wrap on the way up.
func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.WithTxContext(ctx, tx))
	})
	return errs.WithStack(err)
}
