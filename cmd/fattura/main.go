package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fattura/internal/clock"
	"github.com/smallbiznis/fattura/internal/config"
	"github.com/smallbiznis/fattura/internal/invoice"
	"github.com/smallbiznis/fattura/internal/logger"
	"github.com/smallbiznis/fattura/internal/migration"
	"github.com/smallbiznis/fattura/internal/notification"
	"github.com/smallbiznis/fattura/internal/organization"
	"github.com/smallbiznis/fattura/internal/preservation"
	"github.com/smallbiznis/fattura/internal/retention"
	"github.com/smallbiznis/fattura/internal/scheduler"
	"github.com/smallbiznis/fattura/internal/server"
	"github.com/smallbiznis/fattura/internal/vies"
	"github.com/smallbiznis/fattura/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		organization.Module,
		invoice.Module,
		preservation.Module,
		retention.Module,
		vies.Module,
		notification.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
