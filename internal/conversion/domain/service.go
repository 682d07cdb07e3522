package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type IntakeRequest struct {
	Code            string
	SessionID       string
	CustomerID      string
	ConversionType  Type
	ConversionValue decimal.Decimal
	Currency        string
	IdempotencyKey  string
	Metadata        map[string]any
}

// IntakeResult reports whether the submission created a new conversion or
// replayed an existing one.
type IntakeResult struct {
	Conversion Conversion
	Duplicate  bool
}

type Service interface {
	// Intake records a conversion against a tracking code. Replays of the
	// same idempotency key, or of the same link, session and type inside the
	// dedupe window, return the original row.
	Intake(ctx context.Context, req IntakeRequest) (IntakeResult, error)
	Get(ctx context.Context, id snowflake.ID) (Conversion, error)
	List(ctx context.Context, filter ListFilter) ([]Conversion, error)
	// Validate approves a pending conversion and creates its commission in
	// the same transaction, pricing against the program scheme and tier
	// multiplier in effect now.
	Validate(ctx context.Context, id snowflake.ID) (Conversion, error)
	Reject(ctx context.Context, id snowflake.ID) (Conversion, error)
}

var (
	ErrNotFound               = errors.New("conversion_not_found")
	ErrInvalidType            = errors.New("invalid_conversion_type")
	ErrInvalidValue           = errors.New("invalid_conversion_value")
	ErrInvalidSession         = errors.New("invalid_conversion_session")
	ErrInactiveLink           = errors.New("referral_link_inactive")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrConcurrentModification = errors.New("concurrent_modification")
)
