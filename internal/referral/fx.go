package referral

import (
	"github.com/trackmint/trackmint/internal/referral/repository"
	"github.com/trackmint/trackmint/internal/referral/service"
	"go.uber.org/fx"
)

var Module = fx.Module("referral.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
