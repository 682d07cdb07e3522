package affiliate

import (
	"github.com/trackmint/trackmint/internal/affiliate/repository"
	"github.com/trackmint/trackmint/internal/affiliate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("affiliate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
