package plan

import (
	"github.com/paylanka/paylanka/internal/plan/repository"
	"github.com/paylanka/paylanka/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
