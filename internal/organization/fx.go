package organization

import (
	"github.com/smallbiznis/fattura/internal/organization/domain"
	"github.com/smallbiznis/fattura/internal/organization/repository"
	"github.com/smallbiznis/fattura/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(repo domain.Repository) domain.TenantLister { return repo }),
)
