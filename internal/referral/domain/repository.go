package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, link *ReferralLink) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ReferralLink, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*ReferralLink, error)
	ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) ([]*ReferralLink, error)
	IncrementClicks(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	IncrementConversions(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) (int64, error)
}
