package conversion

import (
	"github.com/trackmint/trackmint/internal/conversion/repository"
	"github.com/trackmint/trackmint/internal/conversion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("conversion.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
