package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/conversion/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const conversionColumns = `id, link_id, affiliate_id, program_id, session_id, customer_id, conversion_type, conversion_value, currency, status, idempotency_key, metadata, validated_at, rejected_at, reviewed_by, version, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, conversion *domain.Conversion) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO conversions (`+conversionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conversion.ID,
		conversion.LinkID,
		conversion.AffiliateID,
		conversion.ProgramID,
		conversion.SessionID,
		conversion.CustomerID,
		conversion.ConversionType,
		conversion.ConversionValue,
		conversion.Currency,
		conversion.Status,
		conversion.IdempotencyKey,
		conversion.Metadata,
		conversion.ValidatedAt,
		conversion.RejectedAt,
		conversion.ReviewedBy,
		conversion.Version,
		conversion.CreatedAt,
		conversion.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Conversion, error) {
	var conversion domain.Conversion
	err := db.WithContext(ctx).Raw(
		`SELECT `+conversionColumns+` FROM conversions WHERE id = ?`,
		id,
	).Scan(&conversion).Error
	if err != nil {
		return nil, err
	}
	if conversion.ID == 0 {
		return nil, nil
	}
	return &conversion, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*domain.Conversion, error) {
	var conversion domain.Conversion
	err := db.WithContext(ctx).Raw(
		`SELECT `+conversionColumns+` FROM conversions WHERE idempotency_key = ?`,
		key,
	).Scan(&conversion).Error
	if err != nil {
		return nil, err
	}
	if conversion.ID == 0 {
		return nil, nil
	}
	return &conversion, nil
}

func (r *repo) FindRecentDuplicate(ctx context.Context, db *gorm.DB, linkID snowflake.ID, sessionID string, conversionType domain.Type, since time.Time) (*domain.Conversion, error) {
	var conversion domain.Conversion
	err := db.WithContext(ctx).Raw(
		`SELECT `+conversionColumns+` FROM conversions
		 WHERE link_id = ? AND session_id = ? AND conversion_type = ? AND created_at >= ?
		 ORDER BY created_at DESC LIMIT 1`,
		linkID,
		sessionID,
		conversionType,
		since,
	).Scan(&conversion).Error
	if err != nil {
		return nil, err
	}
	if conversion.ID == 0 {
		return nil, nil
	}
	return &conversion, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Conversion, error) {
	stmt := db.WithContext(ctx).Model(&domain.Conversion{})
	if filter.AffiliateID != nil {
		stmt = stmt.Where("affiliate_id = ?", *filter.AffiliateID)
	}
	if filter.ProgramID != nil {
		stmt = stmt.Where("program_id = ?", *filter.ProgramID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.PageToken != "" {
		cursor, err := filter.Cursor()
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var conversions []*domain.Conversion
	err := stmt.Order("created_at desc, id desc").
		Limit(filter.Limit() + 1).
		Find(&conversions).Error
	if err != nil {
		return nil, err
	}
	return conversions, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, version int64, at time.Time, reviewedBy *string) (int64, error) {
	stamp := "validated_at"
	if to == domain.StatusRejected {
		stamp = "rejected_at"
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE conversions SET status = ?, `+stamp+` = ?, reviewed_by = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND version = ?`,
		to,
		at,
		reviewedBy,
		id,
		from,
		version,
	)
	return result.RowsAffected, result.Error
}
