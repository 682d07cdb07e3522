package payout

import (
	"github.com/trackmint/trackmint/internal/payout/repository"
	"github.com/trackmint/trackmint/internal/payout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
