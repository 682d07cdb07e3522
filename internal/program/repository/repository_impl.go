package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/program/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, program *domain.Program) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO programs (id, name, slug, description, status, commission_type, commission_config, cookie_window_days, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		program.ID,
		program.Name,
		program.Slug,
		program.Description,
		program.Status,
		program.CommissionType,
		program.CommissionConfig,
		program.CookieWindowDays,
		program.Version,
		program.CreatedAt,
		program.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Program, error) {
	var program domain.Program
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, description, status, commission_type, commission_config, cookie_window_days, version, created_at, updated_at
		 FROM programs WHERE id = ?`,
		id,
	).Scan(&program).Error
	if err != nil {
		return nil, err
	}
	if program.ID == 0 {
		return nil, nil
	}
	return &program, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Program, error) {
	var program domain.Program
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, description, status, commission_type, commission_config, cookie_window_days, version, created_at, updated_at
		 FROM programs WHERE slug = ?`,
		slug,
	).Scan(&program).Error
	if err != nil {
		return nil, err
	}
	if program.ID == 0 {
		return nil, nil
	}
	return &program, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Program, error) {
	stmt := db.WithContext(ctx).Model(&domain.Program{})
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

	var programs []*domain.Program
	err := stmt.Order("created_at desc, id desc").
		Limit(filter.Limit() + 1).
		Find(&programs).Error
	if err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, version int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE programs SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND version = ?`,
		to,
		id,
		from,
		version,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateConfig(ctx context.Context, db *gorm.DB, program *domain.Program) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE programs SET commission_type = ?, commission_config = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		program.CommissionType,
		program.CommissionConfig,
		program.UpdatedAt,
		program.ID,
		program.Version,
	)
	return result.RowsAffected, result.Error
}
