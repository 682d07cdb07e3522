package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateTierRequest struct {
	Name                 string
	Level                int
	CommissionMultiplier decimal.Decimal
	Requirements         map[string]any
	Benefits             map[string]any
}

// Resolution is the multiplier in effect for an affiliate.
type Resolution struct {
	TierID     *snowflake.ID
	Multiplier decimal.Decimal
}

type Service interface {
	Create(ctx context.Context, req CreateTierRequest) (Tier, error)
	List(ctx context.Context) ([]Tier, error)

	// ResolveMultiplier returns the multiplier in effect for the given tier
	// assignment. A nil assignment resolves to the default tier (multiplier
	// 1.0 when no tiers are configured); an assignment pointing at a missing
	// tier fails with ErrTierResolution.
	ResolveMultiplier(ctx context.Context, assigned *snowflake.ID) (Resolution, error)
}

var (
	ErrInvalidName       = errors.New("invalid_tier_name")
	ErrInvalidLevel      = errors.New("invalid_tier_level")
	ErrInvalidMultiplier = errors.New("invalid_tier_multiplier")
	ErrDuplicateTier     = errors.New("duplicate_tier")
	ErrTierResolution    = errors.New("tier_resolution_failed")
)
