package persistence

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// GormUnitOfWork implements shared.UnitOfWork on top of GORM
// transactions. The transactional connection travels in the context so
// every repository call inside the function joins the same transaction.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// WithinTx runs fn inside one transaction. Either every mutation fn
// performs commits, or none of them does. Nested calls join the
// enclosing transaction instead of opening a new one.
func (u *GormUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// TxFromContext returns the transaction stored in the context, or nil
func TxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// connFor picks the context transaction when present, the base
// connection otherwise
func connFor(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
