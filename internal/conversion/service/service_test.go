package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	affiliatedomain "github.com/trackmint/trackmint/internal/affiliate/domain"
	affiliaterepo "github.com/trackmint/trackmint/internal/affiliate/repository"
	affiliatesvc "github.com/trackmint/trackmint/internal/affiliate/service"
	auditsvc "github.com/trackmint/trackmint/internal/audit/service"
	"github.com/trackmint/trackmint/internal/clock"
	commissiondomain "github.com/trackmint/trackmint/internal/commission/domain"
	commissionrepo "github.com/trackmint/trackmint/internal/commission/repository"
	commissionsvc "github.com/trackmint/trackmint/internal/commission/service"
	"github.com/trackmint/trackmint/internal/conversion/domain"
	"github.com/trackmint/trackmint/internal/conversion/repository"
	"github.com/trackmint/trackmint/internal/events"
	programdomain "github.com/trackmint/trackmint/internal/program/domain"
	programrepo "github.com/trackmint/trackmint/internal/program/repository"
	programsvc "github.com/trackmint/trackmint/internal/program/service"
	"github.com/trackmint/trackmint/internal/rating"
	referraldomain "github.com/trackmint/trackmint/internal/referral/domain"
	referralrepo "github.com/trackmint/trackmint/internal/referral/repository"
	referralsvc "github.com/trackmint/trackmint/internal/referral/service"
	"github.com/trackmint/trackmint/internal/testutil"
	tierdomain "github.com/trackmint/trackmint/internal/tier/domain"
	tierrepo "github.com/trackmint/trackmint/internal/tier/repository"
	tiersvc "github.com/trackmint/trackmint/internal/tier/service"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	clk         *clock.FakeClock
	svc         *Service
	tiers       tierdomain.Service
	programs    programdomain.Service
	affiliates  affiliatedomain.Service
	referrals   referraldomain.Service
	commissions commissiondomain.Service
	outbox      events.Outbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.OpenDB(t,
		testutil.SchemaTiers,
		testutil.SchemaPrograms,
		testutil.SchemaAffiliates,
		testutil.SchemaReferralLinks,
		testutil.SchemaConversions,
		testutil.SchemaCommissions,
		testutil.SchemaOutbox,
		testutil.SchemaAuditLogs,
	)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	outbox := events.NewOutbox()

	audit := auditsvc.New(auditsvc.Params{DB: db, Log: log, GenID: node, Clock: clk})
	tiers := tiersvc.New(tiersvc.Params{DB: db, Log: log, GenID: node, Repo: tierrepo.Provide()})
	programs := programsvc.New(programsvc.Params{DB: db, Log: log, GenID: node, Repo: programrepo.Provide(), Clock: clk})
	affiliates := affiliatesvc.New(affiliatesvc.Params{
		DB: db, Log: log, GenID: node, Repo: affiliaterepo.Provide(),
		Tiers: tiers, Outbox: outbox, Audit: audit, Clock: clk,
	})
	referrals := referralsvc.New(referralsvc.Params{
		DB: db, Log: log, GenID: node, Repo: referralrepo.Provide(),
		Programs: programs, Clock: clk,
	})
	commissions := commissionsvc.New(commissionsvc.Params{
		DB: db, Log: log, GenID: node, Repo: commissionrepo.Provide(),
		Outbox: outbox, Audit: audit, Clock: clk,
	})

	svc := &Service{
		db:          db,
		log:         log,
		genID:       node,
		repo:        repository.Provide(),
		referrals:   referrals,
		programs:    programs,
		affiliates:  affiliates,
		tiers:       tiers,
		commissions: commissions,
		outbox:      outbox,
		audit:       audit,
		clock:       clk,
	}

	return &fixture{
		db:          db,
		clk:         clk,
		svc:         svc,
		tiers:       tiers,
		programs:    programs,
		affiliates:  affiliates,
		referrals:   referrals,
		commissions: commissions,
		outbox:      outbox,
	}
}

// setupLink provisions an active program, an approved affiliate on a 1.2x
// tier and a live referral link.
func (f *fixture) setupLink(t *testing.T, cfg rating.Config) referraldomain.ReferralLink {
	t.Helper()
	ctx := context.Background()

	_, err := f.tiers.Create(ctx, tierdomain.CreateTierRequest{
		Name:                 "Silver",
		Level:                2,
		CommissionMultiplier: decimal.RequireFromString("1.2"),
	})
	require.NoError(t, err)

	program, err := f.programs.Create(ctx, programdomain.CreateProgramRequest{
		Name:             "Spring Sale",
		CommissionConfig: cfg,
	})
	require.NoError(t, err)
	program, err = f.programs.Activate(ctx, program.ID)
	require.NoError(t, err)

	affiliate, err := f.affiliates.Register(ctx, affiliatedomain.RegisterRequest{
		Name:  "Jamie",
		Email: "jamie@example.com",
	})
	require.NoError(t, err)
	affiliate, err = f.affiliates.Approve(ctx, affiliate.ID)
	require.NoError(t, err)
	require.NotNil(t, affiliate.TierID)

	link, err := f.referrals.CreateLink(ctx, referraldomain.CreateLinkRequest{
		AffiliateID:    affiliate.ID,
		ProgramID:      program.ID,
		DestinationURL: "https://shop.example.com",
	})
	require.NoError(t, err)
	return link
}

func percentConfig(pct string) rating.Config {
	return rating.Config{Type: rating.TypePercentage, Percent: decimal.RequireFromString(pct)}
}

func TestIntake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.setupLink(t, percentConfig("15"))

	t.Run("records pending conversion", func(t *testing.T) {
		result, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-1",
			ConversionType:  domain.TypeSale,
			ConversionValue: decimal.RequireFromString("200.00"),
			IdempotencyKey:  "order-1001",
		})
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.Equal(t, domain.StatusPending, result.Conversion.Status)
		assert.Equal(t, link.AffiliateID, result.Conversion.AffiliateID)
		assert.Equal(t, "USD", result.Conversion.Currency)
	})

	t.Run("replays idempotency key", func(t *testing.T) {
		first, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-replay",
			ConversionType:  domain.TypeSale,
			ConversionValue: decimal.RequireFromString("50.00"),
			IdempotencyKey:  "order-1002",
		})
		require.NoError(t, err)

		second, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-replay",
			ConversionType:  domain.TypeSale,
			ConversionValue: decimal.RequireFromString("999.00"),
			IdempotencyKey:  "order-1002",
		})
		require.NoError(t, err)
		assert.True(t, second.Duplicate)
		assert.Equal(t, first.Conversion.ID, second.Conversion.ID)
		assert.True(t, second.Conversion.ConversionValue.Equal(decimal.RequireFromString("50.00")))
	})

	t.Run("dedupes same session inside window", func(t *testing.T) {
		first, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-window",
			ConversionType:  domain.TypeLead,
			ConversionValue: decimal.Zero,
		})
		require.NoError(t, err)

		second, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-window",
			ConversionType:  domain.TypeLead,
			ConversionValue: decimal.Zero,
		})
		require.NoError(t, err)
		assert.True(t, second.Duplicate)
		assert.Equal(t, first.Conversion.ID, second.Conversion.ID)

		f.clk.Advance(11 * time.Minute)
		third, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-window",
			ConversionType:  domain.TypeLead,
			ConversionValue: decimal.Zero,
		})
		require.NoError(t, err)
		assert.False(t, third.Duplicate)
	})

	t.Run("accepts custom type", func(t *testing.T) {
		result, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-custom",
			ConversionType:  domain.TypeCustom,
			ConversionValue: decimal.RequireFromString("12.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TypeCustom, result.Conversion.ConversionType)
	})

	t.Run("records customer id", func(t *testing.T) {
		result, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-customer",
			CustomerID:      "cust-42",
			ConversionType:  domain.TypeSignup,
			ConversionValue: decimal.Zero,
		})
		require.NoError(t, err)
		require.NotNil(t, result.Conversion.CustomerID)
		assert.Equal(t, "cust-42", *result.Conversion.CustomerID)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:           link.Code,
			SessionID:      "sess-x",
			ConversionType: domain.Type("refund"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidType)
	})

	t.Run("rejects negative value", func(t *testing.T) {
		_, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-x",
			ConversionType:  domain.TypeSale,
			ConversionValue: decimal.RequireFromString("-5"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidValue)
	})

	t.Run("rejects missing session id", func(t *testing.T) {
		_, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "  ",
			ConversionType:  domain.TypeSale,
			ConversionValue: decimal.RequireFromString("10"),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidSession)
	})

	t.Run("rejects inactive link", func(t *testing.T) {
		deactivated, err := f.referrals.Deactivate(ctx, link.ID)
		require.NoError(t, err)
		require.False(t, deactivated.Active)

		_, err = f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-x",
			ConversionType:  domain.TypeSale,
			ConversionValue: decimal.RequireFromString("10"),
		})
		assert.ErrorIs(t, err, domain.ErrInactiveLink)
	})
}

func TestIntakeExpiredLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.setupLink(t, percentConfig("10"))

	expiry := f.clk.Now().Add(time.Hour)
	link, err := f.referrals.CreateLink(ctx, referraldomain.CreateLinkRequest{
		AffiliateID:    base.AffiliateID,
		ProgramID:      base.ProgramID,
		DestinationURL: "https://shop.example.com/summer",
		ExpiresAt:      &expiry,
	})
	require.NoError(t, err)

	f.clk.Advance(2 * time.Hour)
	_, err = f.svc.Intake(ctx, domain.IntakeRequest{
		Code:            link.Code,
		SessionID:       "sess-late",
		ConversionType:  domain.TypeSale,
		ConversionValue: decimal.RequireFromString("10"),
	})
	assert.ErrorIs(t, err, referraldomain.ErrExpiredLink)
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.setupLink(t, percentConfig("15"))

	result, err := f.svc.Intake(ctx, domain.IntakeRequest{
		Code:            link.Code,
		SessionID:       "sess-v",
		ConversionType:  domain.TypeSale,
		ConversionValue: decimal.RequireFromString("200.00"),
		IdempotencyKey:  "order-2001",
	})
	require.NoError(t, err)
	conversionID := result.Conversion.ID

	t.Run("creates commission with tier multiplier", func(t *testing.T) {
		validated, err := f.svc.Validate(ctx, conversionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusValidated, validated.Status)
		require.NotNil(t, validated.ValidatedAt)
		assert.Nil(t, validated.RejectedAt)

		commissions, err := f.commissions.List(ctx, commissiondomain.ListFilter{})
		require.NoError(t, err)
		require.Len(t, commissions, 1)

		affiliate, err := f.affiliates.Get(ctx, link.AffiliateID)
		require.NoError(t, err)

		commission := commissions[0]
		assert.Equal(t, conversionID, commission.ConversionID)
		require.NotNil(t, commission.TierID)
		assert.Equal(t, *affiliate.TierID, *commission.TierID)
		assert.Equal(t, "30.00", commission.BaseAmount.StringFixed(2))
		assert.Equal(t, "1.2", commission.TierMultiplier.String())
		assert.Equal(t, "36.00", commission.FinalAmount.StringFixed(2))
		assert.Equal(t, commissiondomain.StatusPending, commission.Status)
		assert.Equal(t, "percentage", commission.CommissionConfig["type"])
	})

	t.Run("validated is terminal", func(t *testing.T) {
		_, err := f.svc.Validate(ctx, conversionID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

		_, err = f.svc.Reject(ctx, conversionID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})

	t.Run("scheme frozen against config changes", func(t *testing.T) {
		another, err := f.svc.Intake(ctx, domain.IntakeRequest{
			Code:            link.Code,
			SessionID:       "sess-v2",
			ConversionType:  domain.TypeSale,
			ConversionValue: decimal.RequireFromString("100.00"),
			IdempotencyKey:  "order-2002",
		})
		require.NoError(t, err)

		program, err := f.programs.Get(ctx, link.ProgramID)
		require.NoError(t, err)
		_, err = f.programs.UpdateCommissionConfig(ctx, programdomain.UpdateConfigRequest{
			ID:               program.ID,
			CommissionConfig: percentConfig("50"),
		})
		require.NoError(t, err)

		validated, err := f.svc.Validate(ctx, another.Conversion.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusValidated, validated.Status)

		commission, err := f.commissions.List(ctx, commissiondomain.ListFilter{})
		require.NoError(t, err)

		// The new conversion prices at 50%, the already-validated one keeps
		// its original amounts.
		var amounts []string
		for _, entry := range commission {
			amounts = append(amounts, entry.FinalAmount.StringFixed(2))
		}
		assert.ElementsMatch(t, []string{"36.00", "60.00"}, amounts)
	})
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link := f.setupLink(t, percentConfig("10"))

	result, err := f.svc.Intake(ctx, domain.IntakeRequest{
		Code:            link.Code,
		SessionID:       "sess-r",
		ConversionType:  domain.TypeSignup,
		ConversionValue: decimal.Zero,
		IdempotencyKey:  "order-3001",
	})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, result.Conversion.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectedAt)
	assert.Nil(t, rejected.ValidatedAt)

	// No ledger entry for a rejected conversion.
	commissions, err := f.commissions.List(ctx, commissiondomain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, commissions)

	_, err = f.svc.Validate(ctx, result.Conversion.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}
