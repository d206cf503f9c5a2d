package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/paylanka/paylanka/internal/access"
	"github.com/paylanka/paylanka/internal/clock"
	"github.com/paylanka/paylanka/internal/config"
	"github.com/paylanka/paylanka/internal/events"
	"github.com/paylanka/paylanka/internal/invoice"
	"github.com/paylanka/paylanka/internal/logger"
	"github.com/paylanka/paylanka/internal/migration"
	"github.com/paylanka/paylanka/internal/observability/tracing"
	"github.com/paylanka/paylanka/internal/payment"
	"github.com/paylanka/paylanka/internal/payrollrates"
	"github.com/paylanka/paylanka/internal/plan"
	"github.com/paylanka/paylanka/internal/scheduler"
	"github.com/paylanka/paylanka/internal/seed"
	"github.com/paylanka/paylanka/internal/server"
	"github.com/paylanka/paylanka/internal/subscription"
	"github.com/paylanka/paylanka/internal/tax"
	"github.com/paylanka/paylanka/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		events.Module,
		plan.Module,
		payrollrates.Module,
		tax.Module,
		subscription.Module,
		invoice.Module,
		payment.Module,
		access.Module,

		scheduler.Module,
		server.Module,
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
