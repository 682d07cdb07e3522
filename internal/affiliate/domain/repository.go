package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status Status
	TierID *snowflake.ID
	pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, affiliate *Affiliate) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Affiliate, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Affiliate, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Affiliate, error)
	// UpdateStatus flips status with a version guard, optionally assigning a
	// tier in the same statement.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, tierID *snowflake.ID, version int64) (int64, error)
	UpdateTier(ctx context.Context, db *gorm.DB, id snowflake.ID, tierID snowflake.ID, version int64) (int64, error)
}
