package subscription

import (
	"github.com/paylanka/paylanka/internal/subscription/repository"
	"github.com/paylanka/paylanka/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
