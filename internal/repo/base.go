package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the connection shared by the order repository methods.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx. A nil ctx yields the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// InTx runs fn in a single transaction bound to ctx. Any error from fn rolls
// the transaction back and is returned unchanged.
func (b Base) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}
