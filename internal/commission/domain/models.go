package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPaid     Status = "paid"
)

// Commission is one ledger entry earned by a validated conversion. The
// rating scheme and tier multiplier in effect at validation time are frozen
// on the row; later program or tier changes never reprice it.
type Commission struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	ConversionID     snowflake.ID      `gorm:"uniqueIndex" json:"conversion_id"`
	AffiliateID      snowflake.ID      `json:"affiliate_id"`
	ProgramID        snowflake.ID      `json:"program_id"`
	TierID           *snowflake.ID     `json:"tier_id,omitempty"`
	BaseAmount       decimal.Decimal   `gorm:"type:numeric(14,2)" json:"base_amount"`
	TierMultiplier   decimal.Decimal   `gorm:"type:numeric(5,2)" json:"tier_multiplier"`
	FinalAmount      decimal.Decimal   `gorm:"type:numeric(14,2)" json:"final_amount"`
	Currency         string            `json:"currency"`
	Status           Status            `json:"status"`
	PayoutID         *snowflake.ID     `json:"payout_id,omitempty"`
	CommissionConfig datatypes.JSONMap `json:"commission_config"`
	ApprovedBy       *string           `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time        `json:"approved_at,omitempty"`
	Version          int64             `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (Commission) TableName() string {
	return "commissions"
}

// CanTransitionTo reports whether the status change is allowed. Rejected and
// paid are terminal; paid is only reached through a payout.
func (c Commission) CanTransitionTo(next Status) bool {
	switch c.Status {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusPaid
	default:
		return false
	}
}

// EarningsSummary aggregates an affiliate's ledger by status.
type EarningsSummary struct {
	AffiliateID    snowflake.ID    `json:"affiliate_id"`
	PendingAmount  decimal.Decimal `json:"pending_amount"`
	ApprovedAmount decimal.Decimal `json:"approved_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	TotalEntries   int64           `json:"total_entries"`
}
