package events

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackmint/trackmint/internal/clock"
	"github.com/trackmint/trackmint/internal/testutil"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
)

func TestOutboxStaging(t *testing.T) {
	db := testutil.OpenDB(t, testutil.SchemaOutbox)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	outbox := NewOutbox()
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	dedupe := "payout.generated:42"
	stageEvent := func() error {
		return outbox.StageTx(ctx, db, &OutboxEvent{
			ID:            node.Generate(),
			EventType:     PayoutGenerated,
			AggregateType: AggregatePayout,
			AggregateID:   "42",
			Payload:       datatypes.JSONMap{"payout_id": "42"},
			DedupeKey:     &dedupe,
			CreatedAt:     now,
		})
	}

	require.NoError(t, stageEvent())
	// Same dedupe key stages nothing new.
	require.NoError(t, stageEvent())

	rows, err := outbox.FetchUndispatched(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, PayoutGenerated, rows[0].EventType)
	assert.False(t, rows[0].Dispatched)
}

func TestDispatchPending(t *testing.T) {
	db := testutil.OpenDB(t, testutil.SchemaOutbox)
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	outbox := NewOutbox()
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		require.NoError(t, outbox.StageTx(ctx, db, &OutboxEvent{
			ID:            node.Generate(),
			EventType:     ConversionRecorded,
			AggregateType: AggregateConversion,
			AggregateID:   "c",
			Payload:       datatypes.JSONMap{},
			CreatedAt:     clk.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	d := &Dispatcher{
		db:     db,
		log:    zaptest.NewLogger(t),
		outbox: outbox,
		clock:  clk,
	}
	d.sink = d.logSink

	dispatched, err := d.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dispatched)

	rows, err := outbox.FetchUndispatched(ctx, db, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// A second sweep finds nothing.
	dispatched, err = d.DispatchPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, dispatched)
}
