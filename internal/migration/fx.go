package migration

import (
	"github.com/smallbiznis/fattura/internal/config"
	invoicedomain "github.com/smallbiznis/fattura/internal/invoice/domain"
	organizationdomain "github.com/smallbiznis/fattura/internal/organization/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned migrations target postgres. Other dialects (sqlite
		// for local development) fall back to gorm's schema sync.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&organizationdomain.Organization{},
				&invoicedomain.ElectronicInvoice{},
				&invoicedomain.TransmissionAttempt{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
