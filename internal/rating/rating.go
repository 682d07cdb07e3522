package rating

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Commission scheme types supported by program configuration.
const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
	TypeTiered     = "tiered"
)

var ErrInvalidCommissionConfig = errors.New("invalid_commission_config")

// Band is a single row of a tiered scheme. Conversions with a value at or
// above Threshold earn Rate percent, until a higher band applies.
type Band struct {
	Threshold decimal.Decimal `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

// Config is the commission scheme of a program. Exactly one of the value
// fields is read depending on Type.
type Config struct {
	Type    string          `json:"type"`
	Percent decimal.Decimal `json:"percent"`
	Amount  decimal.Decimal `json:"amount"`
	Bands   []Band          `json:"bands,omitempty"`
}

// ValidateConfig checks a commission scheme before it is attached to a
// program. Tiered bands must be non-empty with non-negative thresholds and
// rates.
func ValidateConfig(cfg Config) error {
	switch cfg.Type {
	case TypePercentage:
		if cfg.Percent.IsNegative() {
			return fmt.Errorf("%w: negative percent", ErrInvalidCommissionConfig)
		}
	case TypeFixed:
		if cfg.Amount.IsNegative() {
			return fmt.Errorf("%w: negative amount", ErrInvalidCommissionConfig)
		}
	case TypeTiered:
		if len(cfg.Bands) == 0 {
			return fmt.Errorf("%w: tiered scheme without bands", ErrInvalidCommissionConfig)
		}
		for _, band := range cfg.Bands {
			if band.Threshold.IsNegative() || band.Rate.IsNegative() {
				return fmt.Errorf("%w: negative band threshold or rate", ErrInvalidCommissionConfig)
			}
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCommissionConfig, cfg.Type)
	}
	return nil
}

// ComputeBaseAmount rates a conversion value against a commission scheme.
// The result is clamped to zero and rounded to 2 decimal places, half up.
func ComputeBaseAmount(cfg Config, value decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateConfig(cfg); err != nil {
		return decimal.Zero, err
	}
	if value.IsNegative() {
		value = decimal.Zero
	}

	var base decimal.Decimal
	switch cfg.Type {
	case TypePercentage:
		base = value.Mul(cfg.Percent).Div(decimal.NewFromInt(100))
	case TypeFixed:
		base = cfg.Amount
	case TypeTiered:
		base = value.Mul(tieredRate(cfg.Bands, value)).Div(decimal.NewFromInt(100))
	}

	if base.IsNegative() {
		base = decimal.Zero
	}
	return base.Round(2), nil
}

// tieredRate returns the rate of the highest band whose threshold the value
// meets. A value below every threshold earns zero.
func tieredRate(bands []Band, value decimal.Decimal) decimal.Decimal {
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Threshold.LessThan(sorted[j].Threshold)
	})

	rate := decimal.Zero
	for _, band := range sorted {
		if value.GreaterThanOrEqual(band.Threshold) {
			rate = band.Rate
		}
	}
	return rate
}
