package invoice

import (
	"github.com/paylanka/paylanka/internal/invoice/repository"
	"github.com/paylanka/paylanka/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
