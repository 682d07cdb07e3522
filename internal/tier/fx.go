package tier

import (
	"github.com/trackmint/trackmint/internal/tier/repository"
	"github.com/trackmint/trackmint/internal/tier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tier.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
