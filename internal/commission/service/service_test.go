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
	"github.com/trackmint/trackmint/internal/commission/domain"
	"github.com/trackmint/trackmint/internal/commission/repository"
	"github.com/trackmint/trackmint/internal/events"
	"github.com/trackmint/trackmint/internal/testutil"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*Service, *snowflake.Node) {
	t.Helper()

	db := testutil.OpenDB(t,
		testutil.SchemaCommissions,
		testutil.SchemaOutbox,
		testutil.SchemaAuditLogs,
	)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	audit := auditsvc.New(auditsvc.Params{DB: db, Log: log, GenID: node, Clock: clk})

	return &Service{
		db:     db,
		log:    log,
		genID:  node,
		repo:   repository.Provide(),
		outbox: events.NewOutbox(),
		audit:  audit,
		clock:  clk,
	}, node
}

func stage(t *testing.T, svc *Service, node *snowflake.Node, affiliateID snowflake.ID, amount string) domain.Commission {
	t.Helper()

	commission := domain.Commission{
		ConversionID:   node.Generate(),
		AffiliateID:    affiliateID,
		ProgramID:      node.Generate(),
		BaseAmount:     decimal.RequireFromString(amount),
		TierMultiplier: decimal.NewFromInt(1),
		FinalAmount:    decimal.RequireFromString(amount),
		Currency:       "USD",
	}
	err := svc.db.Transaction(func(tx *gorm.DB) error {
		return svc.CreateTx(context.Background(), tx, &commission)
	})
	require.NoError(t, err)
	return commission
}

func TestCreateTx(t *testing.T) {
	svc, node := newService(t)
	ctx := context.Background()
	affiliateID := node.Generate()

	commission := stage(t, svc, node, affiliateID, "12.00")
	assert.Equal(t, domain.StatusPending, commission.Status)
	assert.EqualValues(t, 1, commission.Version)

	t.Run("one entry per conversion", func(t *testing.T) {
		duplicate := domain.Commission{
			ConversionID:   commission.ConversionID,
			AffiliateID:    affiliateID,
			ProgramID:      commission.ProgramID,
			BaseAmount:     decimal.RequireFromString("12.00"),
			TierMultiplier: decimal.NewFromInt(1),
			FinalAmount:    decimal.RequireFromString("12.00"),
			Currency:       "USD",
		}
		err := svc.db.Transaction(func(tx *gorm.DB) error {
			return svc.CreateTx(ctx, tx, &duplicate)
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateConversion)
	})
}

func TestTransitions(t *testing.T) {
	svc, node := newService(t)
	ctx := context.Background()
	affiliateID := node.Generate()

	t.Run("approve", func(t *testing.T) {
		commission := stage(t, svc, node, affiliateID, "20.00")
		approved, err := svc.Approve(ctx, commission.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, approved.Status)
		assert.EqualValues(t, 2, approved.Version)
		assert.NotNil(t, approved.ApprovedAt)
	})

	t.Run("reject is terminal", func(t *testing.T) {
		commission := stage(t, svc, node, affiliateID, "20.00")
		rejected, err := svc.Reject(ctx, commission.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, rejected.Status)
		assert.Nil(t, rejected.ApprovedAt)

		_, err = svc.Approve(ctx, commission.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})

	t.Run("approved cannot be rejected", func(t *testing.T) {
		commission := stage(t, svc, node, affiliateID, "20.00")
		_, err := svc.Approve(ctx, commission.ID)
		require.NoError(t, err)

		_, err = svc.Reject(ctx, commission.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	})

	t.Run("unknown commission", func(t *testing.T) {
		_, err := svc.Approve(ctx, node.Generate())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestLinkToPayoutTx(t *testing.T) {
	svc, node := newService(t)
	ctx := context.Background()
	affiliateID := node.Generate()
	payoutID := node.Generate()

	first := stage(t, svc, node, affiliateID, "5.00")
	second := stage(t, svc, node, affiliateID, "6.00")
	_, err := svc.Approve(ctx, first.ID)
	require.NoError(t, err)

	// Only the approved entry is claimable; the batch must fail whole.
	err = svc.db.Transaction(func(tx *gorm.DB) error {
		return svc.LinkToPayoutTx(ctx, tx, payoutID, []snowflake.ID{first.ID, second.ID})
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	// The rollback leaves the approved entry unclaimed.
	entry, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, entry.PayoutID)

	err = svc.db.Transaction(func(tx *gorm.DB) error {
		return svc.LinkToPayoutTx(ctx, tx, payoutID, []snowflake.ID{first.ID})
	})
	require.NoError(t, err)

	entry, err = svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, entry.PayoutID)
	assert.Equal(t, payoutID, *entry.PayoutID)
}

func TestFindEligibleOrdering(t *testing.T) {
	svc, node := newService(t)
	ctx := context.Background()
	affiliateID := node.Generate()

	// Every entry lands on the same clock instant, so the listing order has
	// to fall back to ids.
	var staged []snowflake.ID
	for _, amount := range []string{"1.00", "2.00", "3.00"} {
		commission := stage(t, svc, node, affiliateID, amount)
		_, err := svc.Approve(ctx, commission.ID)
		require.NoError(t, err)
		staged = append(staged, commission.ID)
	}

	start := svc.clock.Now().Add(-time.Hour)
	end := svc.clock.Now().Add(time.Hour)

	var listed []snowflake.ID
	err := svc.db.Transaction(func(tx *gorm.DB) error {
		eligible, err := svc.FindEligibleTx(ctx, tx, affiliateID, start, end)
		if err != nil {
			return err
		}
		for _, entry := range eligible {
			listed = append(listed, entry.ID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, staged, listed)
}

func TestUnlinkByPayoutTx(t *testing.T) {
	svc, node := newService(t)
	ctx := context.Background()
	affiliateID := node.Generate()
	payoutID := node.Generate()

	claimed := stage(t, svc, node, affiliateID, "5.00")
	paid := stage(t, svc, node, affiliateID, "6.00")
	for _, id := range []snowflake.ID{claimed.ID, paid.ID} {
		_, err := svc.Approve(ctx, id)
		require.NoError(t, err)
	}

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		return svc.LinkToPayoutTx(ctx, tx, payoutID, []snowflake.ID{claimed.ID, paid.ID})
	})
	require.NoError(t, err)

	// Flip one row to paid so the unlink has to release both shapes.
	err = svc.db.Exec(`UPDATE commissions SET status = ? WHERE id = ?`, domain.StatusPaid, paid.ID).Error
	require.NoError(t, err)

	err = svc.db.Transaction(func(tx *gorm.DB) error {
		return svc.UnlinkByPayoutTx(ctx, tx, payoutID)
	})
	require.NoError(t, err)

	for _, id := range []snowflake.ID{claimed.ID, paid.ID} {
		entry, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, entry.PayoutID)
		assert.Equal(t, domain.StatusApproved, entry.Status)
	}
}

func TestEarningsSummary(t *testing.T) {
	svc, node := newService(t)
	ctx := context.Background()
	affiliateID := node.Generate()

	stage(t, svc, node, affiliateID, "10.00")
	approved := stage(t, svc, node, affiliateID, "25.00")
	_, err := svc.Approve(ctx, approved.ID)
	require.NoError(t, err)

	// Unrelated affiliate stays out of the summary.
	stage(t, svc, node, node.Generate(), "99.00")

	summary, err := svc.EarningsSummary(ctx, affiliateID)
	require.NoError(t, err)
	assert.Equal(t, affiliateID, summary.AffiliateID)
	assert.Equal(t, "10.00", summary.PendingAmount.StringFixed(2))
	assert.Equal(t, "25.00", summary.ApprovedAmount.StringFixed(2))
	assert.Equal(t, "0.00", summary.PaidAmount.StringFixed(2))
	assert.EqualValues(t, 2, summary.TotalEntries)
}
