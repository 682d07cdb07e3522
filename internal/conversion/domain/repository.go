package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	AffiliateID *snowflake.ID
	ProgramID   *snowflake.ID
	Status      Status
	pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, conversion *Conversion) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Conversion, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*Conversion, error)
	// FindRecentDuplicate matches on link, session and type inside the
	// dedupe window for submissions that carry no idempotency key.
	FindRecentDuplicate(ctx context.Context, db *gorm.DB, linkID snowflake.ID, sessionID string, conversionType Type, since time.Time) (*Conversion, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Conversion, error)
	// UpdateStatus flips status with an optimistic guard and stamps the
	// review decision (validated_at or rejected_at, plus the reviewer).
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, version int64, at time.Time, reviewedBy *string) (int64, error)
}
