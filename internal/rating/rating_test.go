package rating

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeBaseAmount(t *testing.T) {
	t.Run("percentage", func(t *testing.T) {
		base, err := ComputeBaseAmount(Config{Type: TypePercentage, Percent: dec("15")}, dec("200.00"))
		require.NoError(t, err)
		assert.Equal(t, "30.00", base.StringFixed(2))
	})

	t.Run("percentage rounds half up", func(t *testing.T) {
		base, err := ComputeBaseAmount(Config{Type: TypePercentage, Percent: dec("10")}, dec("0.05"))
		require.NoError(t, err)
		assert.Equal(t, "0.01", base.StringFixed(2))
	})

	t.Run("fixed ignores value", func(t *testing.T) {
		base, err := ComputeBaseAmount(Config{Type: TypeFixed, Amount: dec("25")}, dec("9999"))
		require.NoError(t, err)
		assert.Equal(t, "25.00", base.StringFixed(2))
	})

	t.Run("negative value clamps to zero", func(t *testing.T) {
		base, err := ComputeBaseAmount(Config{Type: TypePercentage, Percent: dec("15")}, dec("-10"))
		require.NoError(t, err)
		assert.True(t, base.IsZero())
	})

	t.Run("tiered picks highest met band", func(t *testing.T) {
		cfg := Config{Type: TypeTiered, Bands: []Band{
			{Threshold: dec("0"), Rate: dec("5")},
			{Threshold: dec("100"), Rate: dec("10")},
			{Threshold: dec("500"), Rate: dec("15")},
		}}

		base, err := ComputeBaseAmount(cfg, dec("50"))
		require.NoError(t, err)
		assert.Equal(t, "2.50", base.StringFixed(2))

		base, err = ComputeBaseAmount(cfg, dec("100"))
		require.NoError(t, err)
		assert.Equal(t, "10.00", base.StringFixed(2))

		base, err = ComputeBaseAmount(cfg, dec("600"))
		require.NoError(t, err)
		assert.Equal(t, "90.00", base.StringFixed(2))
	})

	t.Run("tiered below every band earns zero", func(t *testing.T) {
		cfg := Config{Type: TypeTiered, Bands: []Band{
			{Threshold: dec("100"), Rate: dec("10")},
		}}
		base, err := ComputeBaseAmount(cfg, dec("99.99"))
		require.NoError(t, err)
		assert.True(t, base.IsZero())
	})
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"percentage", Config{Type: TypePercentage, Percent: dec("10")}, true},
		{"negative percent", Config{Type: TypePercentage, Percent: dec("-1")}, false},
		{"fixed", Config{Type: TypeFixed, Amount: dec("5")}, true},
		{"negative fixed", Config{Type: TypeFixed, Amount: dec("-5")}, false},
		{"tiered", Config{Type: TypeTiered, Bands: []Band{{Threshold: dec("0"), Rate: dec("5")}}}, true},
		{"tiered without bands", Config{Type: TypeTiered}, false},
		{"negative band rate", Config{Type: TypeTiered, Bands: []Band{{Threshold: dec("0"), Rate: dec("-5")}}}, false},
		{"unknown type", Config{Type: "flat"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(tc.cfg)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidCommissionConfig)
			}
		})
	}
}
