package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusCancelled  Status = "cancelled"
)

// Payout batches an affiliate's approved commissions for one period. Paid
// and cancelled are terminal.
type Payout struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	AffiliateID      snowflake.ID    `json:"affiliate_id"`
	Amount           decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Currency         string          `json:"currency"`
	Status           Status          `json:"status"`
	PeriodStart      time.Time       `json:"period_start"`
	PeriodEnd        time.Time       `json:"period_end"`
	CommissionCount  int64           `json:"commission_count"`
	PaymentReference string          `json:"payment_reference"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Payout) TableName() string {
	return "payouts"
}

func (p Payout) CanTransitionTo(next Status) bool {
	switch p.Status {
	case StatusPending:
		return next == StatusProcessing || next == StatusPaid || next == StatusCancelled
	case StatusProcessing:
		return next == StatusPaid || next == StatusCancelled
	default:
		return false
	}
}

// Summary aggregates payouts by status for reporting.
type Summary struct {
	Status Status          `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}
