package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status Status
	pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, program *Program) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Program, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Program, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Program, error)
	// UpdateStatus flips status with an optimistic version guard and returns
	// the number of rows changed.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, version int64) (int64, error)
	// UpdateConfig replaces the commission scheme with a version guard.
	UpdateConfig(ctx context.Context, db *gorm.DB, program *Program) (int64, error)
}
