package rollup

import (
	"github.com/smallbiznis/arrears/internal/rollup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rollup.service",
	fx.Provide(service.NewService),
)
