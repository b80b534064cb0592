package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindAll returns every partner ordered by creation time then id.
	FindAll(ctx context.Context, db *gorm.DB) ([]Partner, error)
	FindByStatus(ctx context.Context, db *gorm.DB, status Status) ([]Partner, error)
	// FindByRef matches a name, slug or id. Returns nil, nil when nothing matches.
	FindByRef(ctx context.Context, db *gorm.DB, ref string) (*Partner, error)
	ExistsByName(ctx context.Context, db *gorm.DB, name string) (bool, error)
	Insert(ctx context.Context, db *gorm.DB, partner *Partner) error
	Save(ctx context.Context, db *gorm.DB, partner *Partner) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountByStatus(ctx context.Context, db *gorm.DB, status Status) (int64, error)
}
