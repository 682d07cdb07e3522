package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateLinkRequest struct {
	AffiliateID    snowflake.ID
	ProgramID      snowflake.ID
	DestinationURL string
	ExpiresAt      *time.Time
}

type Service interface {
	CreateLink(ctx context.Context, req CreateLinkRequest) (ReferralLink, error)
	Get(ctx context.Context, id snowflake.ID) (ReferralLink, error)
	// Resolve looks a link up by code, serving recent lookups from cache.
	Resolve(ctx context.Context, code string) (ReferralLink, error)
	ListByAffiliate(ctx context.Context, affiliateID snowflake.ID) ([]ReferralLink, error)
	// RecordClick bumps the click counter of an active, non-expired link.
	RecordClick(ctx context.Context, code string) (ReferralLink, error)
	// RecordConversion bumps the conversion counter. Failures are logged,
	// never surfaced; the counter is advisory.
	RecordConversion(ctx context.Context, id snowflake.ID)
	Deactivate(ctx context.Context, id snowflake.ID) (ReferralLink, error)
}

var (
	ErrNotFound       = errors.New("referral_link_not_found")
	ErrInactiveLink   = errors.New("referral_link_inactive")
	ErrExpiredLink    = errors.New("referral_link_expired")
	ErrInvalidRequest = errors.New("invalid_link_request")
)
