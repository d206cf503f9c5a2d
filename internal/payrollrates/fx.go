package payrollrates

import (
	"github.com/paylanka/paylanka/internal/payrollrates/repository"
	"github.com/paylanka/paylanka/internal/payrollrates/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payrollrates.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
