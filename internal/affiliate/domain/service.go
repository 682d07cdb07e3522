package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type RegisterRequest struct {
	Name          string
	Email         string
	PayoutMethod  string
	PayoutDetails map[string]any
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (Affiliate, error)
	Get(ctx context.Context, id snowflake.ID) (Affiliate, error)
	GetByCode(ctx context.Context, code string) (Affiliate, error)
	List(ctx context.Context, filter ListFilter) ([]Affiliate, error)
	// Approve moves a pending affiliate to approved and assigns the default
	// tier when none is set.
	Approve(ctx context.Context, id snowflake.ID) (Affiliate, error)
	Reject(ctx context.Context, id snowflake.ID) (Affiliate, error)
	Suspend(ctx context.Context, id snowflake.ID) (Affiliate, error)
	Reinstate(ctx context.Context, id snowflake.ID) (Affiliate, error)
	AssignTier(ctx context.Context, id, tierID snowflake.ID) (Affiliate, error)
}

var (
	ErrNotFound               = errors.New("affiliate_not_found")
	ErrInvalidName            = errors.New("invalid_affiliate_name")
	ErrInvalidEmail           = errors.New("invalid_affiliate_email")
	ErrDuplicateEmail         = errors.New("duplicate_affiliate_email")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrConcurrentModification = errors.New("concurrent_modification")
)
