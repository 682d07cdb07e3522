package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (Commission, error)
	List(ctx context.Context, filter ListFilter) ([]Commission, error)
	Approve(ctx context.Context, id snowflake.ID) (Commission, error)
	Reject(ctx context.Context, id snowflake.ID) (Commission, error)
	EarningsSummary(ctx context.Context, affiliateID snowflake.ID) (EarningsSummary, error)

	// CreateTx inserts a ledger entry inside the caller's transaction. One
	// conversion yields at most one entry.
	CreateTx(ctx context.Context, tx *gorm.DB, commission *Commission) error
	// FindEligibleTx lists approved, unlinked commissions for payout
	// generation.
	FindEligibleTx(ctx context.Context, tx *gorm.DB, affiliateID snowflake.ID, start, end time.Time) ([]Commission, error)
	EligibleAffiliateIDs(ctx context.Context, start, end time.Time) ([]snowflake.ID, error)
	// LinkToPayoutTx claims the given commissions for a payout. It fails
	// with ErrConcurrentModification unless every row is claimed.
	LinkToPayoutTx(ctx context.Context, tx *gorm.DB, payoutID snowflake.ID, ids []snowflake.ID) error
	MarkPaidByPayoutTx(ctx context.Context, tx *gorm.DB, payoutID snowflake.ID) error
	UnlinkByPayoutTx(ctx context.Context, tx *gorm.DB, payoutID snowflake.ID) error
}

var (
	ErrNotFound               = errors.New("commission_not_found")
	ErrDuplicateConversion    = errors.New("duplicate_commission_for_conversion")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrConcurrentModification = errors.New("concurrent_modification")
)
