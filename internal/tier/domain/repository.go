package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tier *Tier) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tier, error)
	// FindDefault returns the tier with the lowest level, or nil when no
	// tiers exist.
	FindDefault(ctx context.Context, db *gorm.DB) (*Tier, error)
	List(ctx context.Context, db *gorm.DB) ([]*Tier, error)
}
