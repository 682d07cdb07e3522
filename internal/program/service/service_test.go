package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackmint/trackmint/internal/clock"
	"github.com/trackmint/trackmint/internal/program/domain"
	"github.com/trackmint/trackmint/internal/program/repository"
	"github.com/trackmint/trackmint/internal/rating"
	"github.com/trackmint/trackmint/internal/testutil"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T) *Service {
	t.Helper()

	db := testutil.OpenDB(t, testutil.SchemaPrograms)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	return &Service{
		db:    db,
		log:   zaptest.NewLogger(t),
		genID: node,
		repo:  repository.Provide(),
		clock: clock.NewFakeClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
	}
}

func percentConfig(pct string) rating.Config {
	return rating.Config{Type: rating.TypePercentage, Percent: decimal.RequireFromString(pct)}
}

func TestCreateProgram(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	t.Run("slugifies name and defaults", func(t *testing.T) {
		program, err := svc.Create(ctx, domain.CreateProgramRequest{
			Name:             "Spring Sale 2026",
			CommissionConfig: percentConfig("15"),
		})
		require.NoError(t, err)
		assert.Equal(t, "spring-sale-2026", program.Slug)
		assert.Equal(t, domain.StatusDraft, program.Status)
		assert.Equal(t, "percentage", program.CommissionType)
		assert.Equal(t, 30, program.CookieWindowDays)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateProgramRequest{
			Name:             "Spring Sale 2026",
			CommissionConfig: percentConfig("10"),
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateSlug)
	})

	t.Run("invalid scheme", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateProgramRequest{
			Name:             "Bad Scheme",
			CommissionConfig: rating.Config{Type: "flat"},
		})
		assert.ErrorIs(t, err, rating.ErrInvalidCommissionConfig)
	})

	t.Run("negative cookie window", func(t *testing.T) {
		_, err := svc.Create(ctx, domain.CreateProgramRequest{
			Name:             "Negative Cookie",
			CommissionConfig: percentConfig("5"),
			CookieWindowDays: -1,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCookieWindow)
	})
}

func TestProgramTransitions(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	program, err := svc.Create(ctx, domain.CreateProgramRequest{
		Name:             "Lifecycle",
		CommissionConfig: percentConfig("10"),
	})
	require.NoError(t, err)

	program, err = svc.Activate(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, program.Status)

	program, err = svc.Pause(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, program.Status)

	program, err = svc.Activate(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, program.Status)

	program, err = svc.Archive(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, program.Status)

	_, err = svc.Activate(ctx, program.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestUpdateCommissionConfig(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	program, err := svc.Create(ctx, domain.CreateProgramRequest{
		Name:             "Tiered Launch",
		CommissionConfig: percentConfig("10"),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateCommissionConfig(ctx, domain.UpdateConfigRequest{
		ID: program.ID,
		CommissionConfig: rating.Config{
			Type: rating.TypeTiered,
			Bands: []rating.Band{
				{Threshold: decimal.Zero, Rate: decimal.RequireFromString("5")},
				{Threshold: decimal.RequireFromString("100"), Rate: decimal.RequireFromString("10")},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "tiered", updated.CommissionType)
	assert.Greater(t, updated.Version, program.Version)

	cfg, err := svc.RatingConfig(updated)
	require.NoError(t, err)
	require.Len(t, cfg.Bands, 2)
	assert.True(t, cfg.Bands[1].Rate.Equal(decimal.RequireFromString("10")))

	t.Run("archived program is frozen", func(t *testing.T) {
		archived, err := svc.Archive(ctx, program.ID)
		require.NoError(t, err)

		_, err = svc.UpdateCommissionConfig(ctx, domain.UpdateConfigRequest{
			ID:               archived.ID,
			CommissionConfig: percentConfig("99"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})
}
