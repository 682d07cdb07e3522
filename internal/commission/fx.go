package commission

import (
	"github.com/trackmint/trackmint/internal/commission/repository"
	"github.com/trackmint/trackmint/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
