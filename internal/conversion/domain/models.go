package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
)

type Type string

const (
	TypeSale   Type = "sale"
	TypeLead   Type = "lead"
	TypeSignup Type = "signup"
	TypeCustom Type = "custom"
)

// Conversion is a tracked event attributed to a referral link. Validated and
// rejected are terminal.
type Conversion struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	LinkID          snowflake.ID      `json:"link_id"`
	AffiliateID     snowflake.ID      `json:"affiliate_id"`
	ProgramID       snowflake.ID      `json:"program_id"`
	SessionID       string            `json:"session_id"`
	CustomerID      *string           `json:"customer_id,omitempty"`
	ConversionType  Type              `json:"conversion_type"`
	ConversionValue decimal.Decimal   `gorm:"type:numeric(14,2)" json:"conversion_value"`
	Currency        string            `json:"currency"`
	Status          Status            `json:"status"`
	IdempotencyKey  *string           `gorm:"uniqueIndex" json:"idempotency_key,omitempty"`
	Metadata        datatypes.JSONMap `json:"metadata"`
	ValidatedAt     *time.Time        `json:"validated_at,omitempty"`
	RejectedAt      *time.Time        `json:"rejected_at,omitempty"`
	ReviewedBy      *string           `json:"reviewed_by,omitempty"`
	Version         int64             `json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (Conversion) TableName() string {
	return "conversions"
}

func (c Conversion) CanTransitionTo(next Status) bool {
	return c.Status == StatusPending && (next == StatusValidated || next == StatusRejected)
}

func ValidType(t Type) bool {
	switch t {
	case TypeSale, TypeLead, TypeSignup, TypeCustom:
		return true
	}
	return false
}
