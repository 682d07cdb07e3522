package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/tier/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tier *domain.Tier) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO affiliate_tiers (id, name, level, commission_multiplier, requirements, benefits, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tier.ID,
		tier.Name,
		tier.Level,
		tier.CommissionMultiplier,
		tier.Requirements,
		tier.Benefits,
		tier.CreatedAt,
		tier.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Tier, error) {
	var tier domain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, level, commission_multiplier, requirements, benefits, created_at, updated_at
		 FROM affiliate_tiers WHERE id = ?`,
		id,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) FindDefault(ctx context.Context, db *gorm.DB) (*domain.Tier, error) {
	var tier domain.Tier
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, level, commission_multiplier, requirements, benefits, created_at, updated_at
		 FROM affiliate_tiers ORDER BY level ASC LIMIT 1`,
	).Scan(&tier).Error
	if err != nil {
		return nil, err
	}
	if tier.ID == 0 {
		return nil, nil
	}
	return &tier, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Tier, error) {
	var tiers []*domain.Tier
	err := db.WithContext(ctx).
		Model(&domain.Tier{}).
		Order("level asc").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}
