package retention

import (
	"github.com/smallbiznis/fattura/internal/retention/service"
	"go.uber.org/fx"
)

var Module = fx.Module("retention.service",
	fx.Provide(service.NewService),
)
