package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/affiliate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, affiliate *domain.Affiliate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO affiliates (id, code, name, email, status, tier_id, payout_method, payout_details, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		affiliate.ID,
		affiliate.Code,
		affiliate.Name,
		affiliate.Email,
		affiliate.Status,
		affiliate.TierID,
		affiliate.PayoutMethod,
		affiliate.PayoutDetails,
		affiliate.Version,
		affiliate.CreatedAt,
		affiliate.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Affiliate, error) {
	var affiliate domain.Affiliate
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, email, status, tier_id, payout_method, payout_details, version, created_at, updated_at
		 FROM affiliates WHERE id = ?`,
		id,
	).Scan(&affiliate).Error
	if err != nil {
		return nil, err
	}
	if affiliate.ID == 0 {
		return nil, nil
	}
	return &affiliate, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Affiliate, error) {
	var affiliate domain.Affiliate
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, email, status, tier_id, payout_method, payout_details, version, created_at, updated_at
		 FROM affiliates WHERE code = ?`,
		code,
	).Scan(&affiliate).Error
	if err != nil {
		return nil, err
	}
	if affiliate.ID == 0 {
		return nil, nil
	}
	return &affiliate, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Affiliate, error) {
	stmt := db.WithContext(ctx).Model(&domain.Affiliate{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.TierID != nil {
		stmt = stmt.Where("tier_id = ?", *filter.TierID)
	}
	if filter.PageToken != "" {
		cursor, err := filter.Cursor()
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var affiliates []*domain.Affiliate
	err := stmt.Order("created_at desc, id desc").
		Limit(filter.Limit() + 1).
		Find(&affiliates).Error
	if err != nil {
		return nil, err
	}
	return affiliates, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, tierID *snowflake.ID, version int64) (int64, error) {
	var result *gorm.DB
	if tierID != nil {
		result = db.WithContext(ctx).Exec(
			`UPDATE affiliates SET status = ?, tier_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = ? AND version = ?`,
			to, *tierID, id, from, version,
		)
	} else {
		result = db.WithContext(ctx).Exec(
			`UPDATE affiliates SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = ? AND version = ?`,
			to, id, from, version,
		)
	}
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateTier(ctx context.Context, db *gorm.DB, id, tierID snowflake.ID, version int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE affiliates SET tier_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ?`,
		tierID,
		id,
		version,
	)
	return result.RowsAffected, result.Error
}
