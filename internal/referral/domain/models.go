package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReferralLink maps a short tracking code to an affiliate and program.
type ReferralLink struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	AffiliateID     snowflake.ID `json:"affiliate_id"`
	ProgramID       snowflake.ID `json:"program_id"`
	Code            string       `gorm:"uniqueIndex" json:"code"`
	DestinationURL  string       `json:"destination_url"`
	Active          bool         `json:"active"`
	ExpiresAt       *time.Time   `json:"expires_at,omitempty"`
	ClickCount      int64        `json:"click_count"`
	ConversionCount int64        `json:"conversion_count"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (ReferralLink) TableName() string {
	return "referral_links"
}

// Expired reports whether the link's expiry, when set, has passed.
func (l ReferralLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}
