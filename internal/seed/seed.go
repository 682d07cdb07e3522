package seed

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/trackmint/trackmint/internal/config"
	tierdomain "github.com/trackmint/trackmint/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var defaultTiers = []tierdomain.CreateTierRequest{
	{Name: "Bronze", Level: 1, CommissionMultiplier: decimal.RequireFromString("1.0")},
	{Name: "Silver", Level: 2, CommissionMultiplier: decimal.RequireFromString("1.2")},
	{Name: "Gold", Level: 3, CommissionMultiplier: decimal.RequireFromString("1.5")},
	{Name: "Platinum", Level: 4, CommissionMultiplier: decimal.RequireFromString("2.0")},
}

// Run installs the default tier ladder on first boot. Reruns are no-ops.
func Run(cfg config.Config, tiers tierdomain.Service, log *zap.Logger) error {
	if !cfg.SeedDefaultTiers {
		return nil
	}
	log = log.Named("seed")

	ctx := context.Background()
	for _, req := range defaultTiers {
		_, err := tiers.Create(ctx, req)
		if err != nil {
			if errors.Is(err, tierdomain.ErrDuplicateTier) {
				continue
			}
			return err
		}
		log.Info("seeded tier", zap.String("name", req.Name), zap.Int("level", req.Level))
	}
	return nil
}

var Module = fx.Module("seed",
	fx.Invoke(Run),
)
