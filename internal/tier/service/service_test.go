package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackmint/trackmint/internal/testutil"
	"github.com/trackmint/trackmint/internal/tier/domain"
	"github.com/trackmint/trackmint/internal/tier/repository"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T) *Service {
	t.Helper()

	db := testutil.OpenDB(t, testutil.SchemaTiers)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &Service{
		db:    db,
		log:   zaptest.NewLogger(t),
		genID: node,
		repo:  repository.Provide(),
	}
}

func TestCreateTier(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	t.Run("creates tier", func(t *testing.T) {
		tier, err := svc.Create(ctx, domain.CreateTierRequest{
			Name:                 "Bronze",
			Level:                1,
			CommissionMultiplier: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		assert.NotZero(t, tier.ID)
		assert.Equal(t, "Bronze", tier.Name)
		assert.True(t, tier.CommissionMultiplier.Equal(decimal.NewFromInt(1)))
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateTierRequest{
			Name:                 "   ",
			Level:                2,
			CommissionMultiplier: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidName)
	})

	t.Run("rejects negative level", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateTierRequest{
			Name:                 "Sub",
			Level:                -1,
			CommissionMultiplier: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidLevel)
	})

	t.Run("rejects negative multiplier", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateTierRequest{
			Name:                 "Neg",
			Level:                3,
			CommissionMultiplier: decimal.NewFromInt(-1),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidMultiplier)
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateTierRequest{
			Name:                 "Bronze",
			Level:                9,
			CommissionMultiplier: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateTier)
	})
}

func TestResolveMultiplier(t *testing.T) {
	ctx := context.Background()

	t.Run("no tiers configured", func(t *testing.T) {
		svc := newService(t)

		res, err := svc.ResolveMultiplier(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, res.TierID)
		assert.True(t, res.Multiplier.Equal(decimal.NewFromInt(1)))
	})

	t.Run("defaults to lowest level", func(t *testing.T) {
		svc := newService(t)

		gold, err := svc.Create(ctx, domain.CreateTierRequest{
			Name:                 "Gold",
			Level:                3,
			CommissionMultiplier: decimal.RequireFromString("1.5"),
		})
		require.NoError(t, err)
		bronze, err := svc.Create(ctx, domain.CreateTierRequest{
			Name:                 "Bronze",
			Level:                1,
			CommissionMultiplier: decimal.NewFromInt(1),
		})
		require.NoError(t, err)

		res, err := svc.ResolveMultiplier(ctx, nil)
		require.NoError(t, err)
		require.NotNil(t, res.TierID)
		assert.Equal(t, bronze.ID, *res.TierID)
		assert.True(t, res.Multiplier.Equal(decimal.NewFromInt(1)))

		res, err = svc.ResolveMultiplier(ctx, &gold.ID)
		require.NoError(t, err)
		require.NotNil(t, res.TierID)
		assert.Equal(t, gold.ID, *res.TierID)
		assert.True(t, res.Multiplier.Equal(decimal.RequireFromString("1.5")))
	})

	t.Run("missing assigned tier", func(t *testing.T) {
		svc := newService(t)

		missing := snowflake.ID(424242)
		_, err := svc.ResolveMultiplier(ctx, &missing)
		assert.ErrorIs(t, err, domain.ErrTierResolution)
	})
}

func TestListTiers(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateTierRequest{Name: "Silver", Level: 2, CommissionMultiplier: decimal.RequireFromString("1.2")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateTierRequest{Name: "Bronze", Level: 1, CommissionMultiplier: decimal.NewFromInt(1)})
	require.NoError(t, err)

	tiers, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, "Bronze", tiers[0].Name)
	assert.Equal(t, "Silver", tiers[1].Name)
}
