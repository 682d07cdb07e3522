package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

type Affiliate struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code          string            `gorm:"uniqueIndex" json:"code"`
	Name          string            `json:"name"`
	Email         string            `gorm:"uniqueIndex" json:"email"`
	Status        Status            `json:"status"`
	TierID        *snowflake.ID     `json:"tier_id,omitempty"`
	PayoutMethod  string            `json:"payout_method"`
	PayoutDetails datatypes.JSONMap `json:"payout_details"`
	Version       int64             `json:"version"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (Affiliate) TableName() string {
	return "affiliates"
}

func (a Affiliate) CanTransitionTo(next Status) bool {
	switch a.Status {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusSuspended
	case StatusSuspended:
		return next == StatusApproved
	default:
		return false
	}
}
