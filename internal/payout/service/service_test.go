package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auditsvc "github.com/trackmint/trackmint/internal/audit/service"
	"github.com/trackmint/trackmint/internal/clock"
	commissiondomain "github.com/trackmint/trackmint/internal/commission/domain"
	commissionrepo "github.com/trackmint/trackmint/internal/commission/repository"
	commissionsvc "github.com/trackmint/trackmint/internal/commission/service"
	"github.com/trackmint/trackmint/internal/events"
	"github.com/trackmint/trackmint/internal/payout/domain"
	"github.com/trackmint/trackmint/internal/payout/repository"
	"github.com/trackmint/trackmint/internal/testutil"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	clk         *clock.FakeClock
	node        *snowflake.Node
	svc         *Service
	commissions commissiondomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.OpenDB(t,
		testutil.SchemaCommissions,
		testutil.SchemaPayouts,
		testutil.SchemaOutbox,
		testutil.SchemaAuditLogs,
	)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2026, 4, 3, 9, 0, 0, 0, time.UTC))
	outbox := events.NewOutbox()
	audit := auditsvc.New(auditsvc.Params{DB: db, Log: log, GenID: node, Clock: clk})
	commissions := commissionsvc.New(commissionsvc.Params{
		DB: db, Log: log, GenID: node, Repo: commissionrepo.Provide(),
		Outbox: outbox, Audit: audit, Clock: clk,
	})

	svc := &Service{
		db:          db,
		log:         log,
		genID:       node,
		repo:        repository.Provide(),
		commissions: commissions,
		outbox:      outbox,
		audit:       audit,
		clock:       clk,
	}

	return &fixture{db: db, clk: clk, node: node, svc: svc, commissions: commissions}
}

// approvedCommission stages an approved ledger entry created at the clock's
// current instant.
func (f *fixture) approvedCommission(t *testing.T, affiliateID snowflake.ID, amount string) commissiondomain.Commission {
	t.Helper()
	ctx := context.Background()

	commission := commissiondomain.Commission{
		ConversionID:   f.node.Generate(),
		AffiliateID:    affiliateID,
		ProgramID:      f.node.Generate(),
		BaseAmount:     decimal.RequireFromString(amount),
		TierMultiplier: decimal.NewFromInt(1),
		FinalAmount:    decimal.RequireFromString(amount),
		Currency:       "USD",
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.commissions.CreateTx(ctx, tx, &commission)
	})
	require.NoError(t, err)

	approved, err := f.commissions.Approve(ctx, commission.ID)
	require.NoError(t, err)
	return approved
}

func (f *fixture) period() (time.Time, time.Time) {
	now := f.clk.Now()
	return now.Add(-24 * time.Hour), now.Add(24 * time.Hour)
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	affiliateID := f.node.Generate()
	start, end := f.period()

	t.Run("no eligible commissions", func(t *testing.T) {
		_, err := f.svc.Generate(ctx, domain.GenerateRequest{
			AffiliateID: affiliateID,
			PeriodStart: start,
			PeriodEnd:   end,
		})
		assert.ErrorIs(t, err, domain.ErrNoEligibleCommissions)
	})

	t.Run("sums approved commissions into one payout", func(t *testing.T) {
		first := f.approvedCommission(t, affiliateID, "50.00")
		second := f.approvedCommission(t, affiliateID, "70.00")

		payout, err := f.svc.Generate(ctx, domain.GenerateRequest{
			AffiliateID: affiliateID,
			PeriodStart: start,
			PeriodEnd:   end,
		})
		require.NoError(t, err)
		assert.Equal(t, "120.00", payout.Amount.StringFixed(2))
		assert.Equal(t, domain.StatusPending, payout.Status)
		assert.Equal(t, int64(2), payout.CommissionCount)

		linked, err := f.commissions.Get(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, linked.PayoutID)
		assert.Equal(t, payout.ID, *linked.PayoutID)

		linked, err = f.commissions.Get(ctx, second.ID)
		require.NoError(t, err)
		require.NotNil(t, linked.PayoutID)
	})

	t.Run("claimed commissions are not batched twice", func(t *testing.T) {
		_, err := f.svc.Generate(ctx, domain.GenerateRequest{
			AffiliateID: affiliateID,
			PeriodStart: start,
			PeriodEnd:   end,
		})
		assert.ErrorIs(t, err, domain.ErrNoEligibleCommissions)
	})

	t.Run("invalid period", func(t *testing.T) {
		_, err := f.svc.Generate(ctx, domain.GenerateRequest{
			AffiliateID: affiliateID,
			PeriodStart: end,
			PeriodEnd:   start,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
	})
}

func TestProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	affiliateID := f.node.Generate()
	start, end := f.period()

	commission := f.approvedCommission(t, affiliateID, "80.00")
	payout, err := f.svc.Generate(ctx, domain.GenerateRequest{
		AffiliateID: affiliateID,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	require.NoError(t, err)

	t.Run("marks payout and commissions paid", func(t *testing.T) {
		processing, err := f.svc.StartProcessing(ctx, payout.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusProcessing, processing.Status)

		var audited int64
		err = f.db.Raw(
			`SELECT COUNT(*) FROM audit_logs WHERE action = ? AND entity_id = ?`,
			"payout.start_processing", payout.ID.String()).Scan(&audited).Error
		require.NoError(t, err)
		assert.EqualValues(t, 1, audited)

		paid, err := f.svc.Process(ctx, payout.ID, "TX-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, paid.Status)
		assert.Equal(t, "TX-1", paid.PaymentReference)
		require.NotNil(t, paid.PaidAt)

		entry, err := f.commissions.Get(ctx, commission.ID)
		require.NoError(t, err)
		assert.Equal(t, commissiondomain.StatusPaid, entry.Status)
	})

	t.Run("paid is terminal", func(t *testing.T) {
		_, err := f.svc.Process(ctx, payout.ID, "TX-2")
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

		_, err = f.svc.Cancel(ctx, payout.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})
}

// rivalClaimCommissions steals the first commission for another payout after
// eligibility has been read but before the batch claim lands.
type rivalClaimCommissions struct {
	commissiondomain.Service
	rivalID snowflake.ID
}

func (c *rivalClaimCommissions) LinkToPayoutTx(ctx context.Context, tx *gorm.DB, payoutID snowflake.ID, ids []snowflake.ID) error {
	err := tx.Exec(
		`UPDATE commissions SET payout_id = ?, version = version + 1 WHERE id = ?`,
		c.rivalID, ids[0]).Error
	if err != nil {
		return err
	}
	return c.Service.LinkToPayoutTx(ctx, tx, payoutID, ids)
}

func TestGenerateLosesClaimRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	affiliateID := f.node.Generate()
	start, end := f.period()

	first := f.approvedCommission(t, affiliateID, "30.00")
	second := f.approvedCommission(t, affiliateID, "45.00")

	f.svc.commissions = &rivalClaimCommissions{
		Service: f.commissions,
		rivalID: f.node.Generate(),
	}

	_, err := f.svc.Generate(ctx, domain.GenerateRequest{
		AffiliateID: affiliateID,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	require.ErrorIs(t, err, commissiondomain.ErrConcurrentModification)

	// The transaction rolled back as a whole: no payout row survives and no
	// commission points at one.
	payouts, err := f.svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, payouts)

	for _, id := range []snowflake.ID{first.ID, second.ID} {
		entry, err := f.commissions.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, entry.PayoutID)
		assert.Equal(t, commissiondomain.StatusApproved, entry.Status)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	affiliateID := f.node.Generate()
	start, end := f.period()

	commission := f.approvedCommission(t, affiliateID, "40.00")
	payout, err := f.svc.Generate(ctx, domain.GenerateRequest{
		AffiliateID: affiliateID,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	// Released commission is approved and unlinked again.
	entry, err := f.commissions.Get(ctx, commission.ID)
	require.NoError(t, err)
	assert.Equal(t, commissiondomain.StatusApproved, entry.Status)
	assert.Nil(t, entry.PayoutID)

	// And can be picked up by the next run.
	regenerated, err := f.svc.Generate(ctx, domain.GenerateRequest{
		AffiliateID: affiliateID,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	require.NoError(t, err)
	assert.Equal(t, "40.00", regenerated.Amount.StringFixed(2))
}

func TestGenerateForPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := f.period()

	alice := f.node.Generate()
	bob := f.node.Generate()
	f.approvedCommission(t, alice, "10.00")
	f.approvedCommission(t, alice, "15.00")
	f.approvedCommission(t, bob, "99.00")

	report, err := f.svc.GenerateForPeriod(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, report.Generated, 2)
	assert.Empty(t, report.Skipped)

	amounts := map[string]string{}
	for _, payout := range report.Generated {
		amounts[payout.AffiliateID.String()] = payout.Amount.StringFixed(2)
	}
	assert.Equal(t, "25.00", amounts[alice.String()])
	assert.Equal(t, "99.00", amounts[bob.String()])
}
