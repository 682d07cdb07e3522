package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Tier is a performance band conferring a commission multiplier.
// Tiers form a total order by level; the lowest level is the default.
type Tier struct {
	ID                   snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name                 string            `gorm:"not null;uniqueIndex" json:"name"`
	Level                int               `gorm:"not null;uniqueIndex" json:"level"`
	CommissionMultiplier decimal.Decimal   `gorm:"type:numeric(5,2);not null" json:"commission_multiplier"`
	Requirements         datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"requirements,omitempty"`
	Benefits             datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"benefits,omitempty"`
	CreatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tier) TableName() string { return "affiliate_tiers" }
