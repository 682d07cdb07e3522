package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	AffiliateID *snowflake.ID
	Status      Status
	pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payout *Payout) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payout, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Payout, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, version int64) (int64, error)
	// MarkPaid stamps the payment reference and paid_at together with the
	// status flip.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, from Status, reference string, paidAt time.Time, version int64) (int64, error)
	Summarize(ctx context.Context, db *gorm.DB, affiliateID *snowflake.ID) ([]Summary, error)
}
