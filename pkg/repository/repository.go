package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository is a minimal generic gorm store for single-table models.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	FindOne(ctx context.Context, query *T) (*T, error)
	Find(ctx context.Context, query *T) ([]*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
}
