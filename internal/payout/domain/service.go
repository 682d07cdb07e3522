package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type GenerateRequest struct {
	AffiliateID snowflake.ID
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// GenerateRunReport summarizes one scheduled generation sweep.
type GenerateRunReport struct {
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Generated   []Payout       `json:"generated"`
	Skipped     []snowflake.ID `json:"skipped,omitempty"`
}

type Service interface {
	// Generate batches an affiliate's approved, unpaid commissions from the
	// period into one pending payout. Every commission is claimed atomically
	// with the payout row.
	Generate(ctx context.Context, req GenerateRequest) (Payout, error)
	// GenerateForPeriod runs Generate for every affiliate holding eligible
	// commissions in the period.
	GenerateForPeriod(ctx context.Context, start, end time.Time) (GenerateRunReport, error)
	Get(ctx context.Context, id snowflake.ID) (Payout, error)
	List(ctx context.Context, filter ListFilter) ([]Payout, error)
	StartProcessing(ctx context.Context, id snowflake.ID) (Payout, error)
	// Process settles the payout: the payout and all linked commissions move
	// to paid in one transaction.
	Process(ctx context.Context, id snowflake.ID, paymentReference string) (Payout, error)
	// Cancel voids a pending or processing payout and releases its
	// commissions back to the eligible pool.
	Cancel(ctx context.Context, id snowflake.ID) (Payout, error)
	Summary(ctx context.Context, affiliateID *snowflake.ID) ([]Summary, error)
}

var (
	ErrNotFound               = errors.New("payout_not_found")
	ErrInvalidPeriod          = errors.New("invalid_payout_period")
	ErrNoEligibleCommissions  = errors.New("no_eligible_commissions")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrConcurrentModification = errors.New("concurrent_modification")
)
