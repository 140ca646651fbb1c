package resolver

import (
	"github.com/smallbiznis/arrears/internal/resolver/service"
	"go.uber.org/fx"
)

var Module = fx.Module("resolver.service",
	fx.Provide(service.NewService),
)
