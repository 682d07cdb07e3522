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
	ProgramID   *snowflake.ID
	Status      Status
	pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, commission *Commission) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commission, error)
	FindByConversion(ctx context.Context, db *gorm.DB, conversionID snowflake.ID) (*Commission, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Commission, error)
	// UpdateStatus flips status with an optimistic guard on current status
	// and version, stamping the approver on the approve transition.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, version int64, at time.Time, actor *string) (int64, error)
	// FindEligible returns approved, unlinked commissions for an affiliate
	// created inside the period.
	FindEligible(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID, start, end time.Time) ([]*Commission, error)
	// EligibleAffiliateIDs returns affiliates holding at least one eligible
	// commission in the period.
	EligibleAffiliateIDs(ctx context.Context, db *gorm.DB, start, end time.Time) ([]snowflake.ID, error)
	// LinkToPayout stamps payout_id on approved, unlinked rows and returns
	// how many rows it claimed.
	LinkToPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, ids []snowflake.ID) (int64, error)
	// MarkPaidByPayout moves every commission of a payout to paid.
	MarkPaidByPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) (int64, error)
	// UnlinkFromPayout clears payout_id on a cancelled payout's commissions
	// and returns them to the approved, eligible pool (paid rows included).
	UnlinkFromPayout(ctx context.Context, db *gorm.DB, payoutID snowflake.ID) (int64, error)
	Summarize(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) (EarningsSummary, error)
}
