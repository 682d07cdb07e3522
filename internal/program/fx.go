package program

import (
	"github.com/trackmint/trackmint/internal/program/repository"
	"github.com/trackmint/trackmint/internal/program/service"
	"go.uber.org/fx"
)

var Module = fx.Module("program.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
