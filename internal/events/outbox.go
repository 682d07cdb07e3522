package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OutboxEvent is a domain event staged in the same transaction as the state
// change it describes. A dispatcher drains undispatched rows afterwards.
type OutboxEvent struct {
	ID            snowflake.ID       `gorm:"primaryKey" json:"id"`
	EventType     string             `json:"event_type"`
	AggregateType string             `json:"aggregate_type"`
	AggregateID   string             `json:"aggregate_id"`
	Payload       datatypes.JSONMap  `json:"payload"`
	DedupeKey     *string            `gorm:"uniqueIndex" json:"dedupe_key,omitempty"`
	Dispatched    bool               `json:"dispatched"`
	DispatchedAt  *time.Time         `json:"dispatched_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// Outbox stages and drains domain events.
type Outbox interface {
	// StageTx appends an event inside the caller's transaction. A duplicate
	// dedupe key is a no-op.
	StageTx(ctx context.Context, tx *gorm.DB, event *OutboxEvent) error
	FetchUndispatched(ctx context.Context, db *gorm.DB, limit int) ([]*OutboxEvent, error)
	MarkDispatched(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}

type outbox struct{}

func NewOutbox() Outbox {
	return &outbox{}
}

func (o *outbox) StageTx(ctx context.Context, tx *gorm.DB, event *OutboxEvent) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO outbox_events (id, event_type, aggregate_type, aggregate_id, payload, dedupe_key, dispatched, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (dedupe_key) DO NOTHING`,
		event.ID,
		event.EventType,
		event.AggregateType,
		event.AggregateID,
		event.Payload,
		event.DedupeKey,
		false,
		event.CreatedAt,
	).Error
}

func (o *outbox) FetchUndispatched(ctx context.Context, db *gorm.DB, limit int) ([]*OutboxEvent, error) {
	var rows []*OutboxEvent
	err := db.WithContext(ctx).Raw(
		`SELECT id, event_type, aggregate_type, aggregate_id, payload, dedupe_key, dispatched, dispatched_at, created_at
		 FROM outbox_events WHERE dispatched = ? ORDER BY created_at ASC LIMIT ?`,
		false,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (o *outbox) MarkDispatched(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE outbox_events SET dispatched = ?, dispatched_at = ? WHERE id = ?`,
		true,
		at,
		id,
	).Error
}
