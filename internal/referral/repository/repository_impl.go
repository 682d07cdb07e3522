package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/referral/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, link *domain.ReferralLink) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO referral_links (id, affiliate_id, program_id, code, destination_url, active, expires_at, click_count, conversion_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		link.ID,
		link.AffiliateID,
		link.ProgramID,
		link.Code,
		link.DestinationURL,
		link.Active,
		link.ExpiresAt,
		link.ClickCount,
		link.ConversionCount,
		link.CreatedAt,
		link.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ReferralLink, error) {
	var link domain.ReferralLink
	err := db.WithContext(ctx).Raw(
		`SELECT id, affiliate_id, program_id, code, destination_url, active, expires_at, click_count, conversion_count, created_at, updated_at
		 FROM referral_links WHERE id = ?`,
		id,
	).Scan(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.ReferralLink, error) {
	var link domain.ReferralLink
	err := db.WithContext(ctx).Raw(
		`SELECT id, affiliate_id, program_id, code, destination_url, active, expires_at, click_count, conversion_count, created_at, updated_at
		 FROM referral_links WHERE code = ?`,
		code,
	).Scan(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID snowflake.ID) ([]*domain.ReferralLink, error) {
	var links []*domain.ReferralLink
	err := db.WithContext(ctx).
		Model(&domain.ReferralLink{}).
		Where("affiliate_id = ?", affiliateID).
		Order("created_at desc").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repo) IncrementClicks(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE referral_links SET click_count = click_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	).Error
}

func (r *repo) IncrementConversions(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE referral_links SET conversion_count = conversion_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	).Error
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE referral_links SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND active != ?`,
		active,
		id,
		active,
	)
	return result.RowsAffected, result.Error
}
