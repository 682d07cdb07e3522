package events

import (
	"context"
	"time"

	"github.com/trackmint/trackmint/internal/clock"
	"github.com/trackmint/trackmint/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dispatchBatchSize = 100

type DispatcherParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Outbox  Outbox
	Clock   clock.Clock
	Metrics *metrics.Metrics
}

// Dispatcher polls the outbox and hands undispatched events to a sink. The
// default sink logs the event; a broker integration replaces it without
// touching staging.
type Dispatcher struct {
	db      *gorm.DB
	log     *zap.Logger
	outbox  Outbox
	clock   clock.Clock
	metrics *metrics.Metrics
	sink    func(ctx context.Context, event *OutboxEvent) error
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	d := &Dispatcher{
		db:      p.DB,
		log:     p.Log.Named("events.dispatcher"),
		outbox:  p.Outbox,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
	d.sink = d.logSink
	return d
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				d.log.Error("dispatch cycle failed", zap.Error(err))
			}
		}
	}
}

// DispatchPending drains one batch of undispatched events and returns how
// many were delivered.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	rows, err := d.outbox.FetchUndispatched(ctx, d.db, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, row := range rows {
		if err := d.sink(ctx, row); err != nil {
			d.log.Error("sink rejected event",
				zap.String("event_type", row.EventType),
				zap.String("aggregate_id", row.AggregateID),
				zap.Error(err))
			continue
		}
		if err := d.outbox.MarkDispatched(ctx, d.db, row.ID, d.clock.Now()); err != nil {
			return dispatched, err
		}
		d.metrics.RecordOutboxDispatched(ctx, row.EventType)
		dispatched++
	}
	return dispatched, nil
}

func (d *Dispatcher) logSink(_ context.Context, event *OutboxEvent) error {
	d.log.Info("event dispatched",
		zap.String("event_type", event.EventType),
		zap.String("aggregate_type", event.AggregateType),
		zap.String("aggregate_id", event.AggregateID))
	return nil
}
