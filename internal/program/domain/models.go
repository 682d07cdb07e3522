package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// Program is a campaign affiliates promote. CommissionConfig holds the
// rating scheme as stored JSON; CommissionType mirrors its type field for
// cheap filtering.
type Program struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name             string            `json:"name"`
	Slug             string            `gorm:"uniqueIndex" json:"slug"`
	Description      string            `json:"description"`
	Status           Status            `json:"status"`
	CommissionType   string            `json:"commission_type"`
	CommissionConfig datatypes.JSONMap `json:"commission_config"`
	CookieWindowDays int               `json:"cookie_window_days"`
	Version          int64             `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (Program) TableName() string {
	return "programs"
}

// CanTransitionTo reports whether the status change is allowed. Archived is
// terminal.
func (p Program) CanTransitionTo(next Status) bool {
	switch p.Status {
	case StatusDraft:
		return next == StatusActive || next == StatusArchived
	case StatusActive:
		return next == StatusPaused || next == StatusArchived
	case StatusPaused:
		return next == StatusActive || next == StatusArchived
	default:
		return false
	}
}
