package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/trackmint/trackmint/internal/rating"
)

type CreateProgramRequest struct {
	Name             string
	Description      string
	CommissionConfig rating.Config
	CookieWindowDays int
}

type UpdateConfigRequest struct {
	ID               snowflake.ID
	CommissionConfig rating.Config
}

type Service interface {
	Create(ctx context.Context, req CreateProgramRequest) (Program, error)
	Get(ctx context.Context, id snowflake.ID) (Program, error)
	GetBySlug(ctx context.Context, slug string) (Program, error)
	List(ctx context.Context, filter ListFilter) ([]Program, error)
	Activate(ctx context.Context, id snowflake.ID) (Program, error)
	Pause(ctx context.Context, id snowflake.ID) (Program, error)
	Archive(ctx context.Context, id snowflake.ID) (Program, error)
	// UpdateCommissionConfig replaces the rating scheme. Existing commissions
	// keep the scheme frozen on their rows.
	UpdateCommissionConfig(ctx context.Context, req UpdateConfigRequest) (Program, error)

	// RatingConfig decodes the stored scheme of a program.
	RatingConfig(p Program) (rating.Config, error)
}

var (
	ErrNotFound               = errors.New("program_not_found")
	ErrInvalidName            = errors.New("invalid_program_name")
	ErrInvalidCookieWindow    = errors.New("invalid_cookie_window")
	ErrDuplicateSlug          = errors.New("duplicate_program_slug")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrConcurrentModification = errors.New("concurrent_modification")
)
