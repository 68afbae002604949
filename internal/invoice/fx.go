package invoice

import (
	"github.com/smallbiznis/fattura/internal/config"
	"github.com/smallbiznis/fattura/internal/invoice/repository"
	"github.com/smallbiznis/fattura/internal/invoice/sdi"
	"github.com/smallbiznis/fattura/internal/invoice/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(func(cfg config.Config, log *zap.Logger) sdi.Gateway {
		return sdi.NewClient(cfg, log)
	}),
	fx.Provide(service.NewService),
)
