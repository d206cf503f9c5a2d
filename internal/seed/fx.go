package seed

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func runOnStartup(gdb *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
	if err := EnsureDefaults(gdb, node); err != nil {
		return err
	}
	log.Info("default plans and rate table ensured")
	return nil
}

// Module seeds the plan catalog and rate table after migrations run.
var Module = fx.Module("seed",
	fx.Invoke(runOnStartup),
)
