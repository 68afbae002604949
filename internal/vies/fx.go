package vies

import (
	"github.com/smallbiznis/fattura/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("vies",
	fx.Provide(func(cfg config.Config, log *zap.Logger) Checker {
		if !cfg.VIESEnabled || cfg.VIESBaseURL == "" {
			return Disabled{}
		}
		return NewClient(cfg.VIESBaseURL, log)
	}),
)
