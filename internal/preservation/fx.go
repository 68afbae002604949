package preservation

import (
	"github.com/smallbiznis/fattura/internal/config"
	"github.com/smallbiznis/fattura/internal/preservation/service"
	"github.com/smallbiznis/fattura/internal/preservation/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("preservation.service",
	fx.Provide(func(cfg config.Config) storage.Storage {
		return storage.NewFS(cfg.ArtifactDir)
	}),
	fx.Provide(service.NewService),
)
