package service

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/paylanka/paylanka/internal/payrollrates/domain"
	"github.com/paylanka/paylanka/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Rates ratedomain.Service
}

type Service struct {
	log   *zap.Logger
	rates ratedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("tax.service"),
		rates: p.Rates,
	}
}

func (s *Service) ComputeForDate(ctx context.Context, grossSalary int64, date time.Time) (*domain.Computation, error) {
	if grossSalary < 0 {
		return nil, domain.ErrInvalidGross
	}

	table, err := s.rates.GetForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	result := s.Compute(grossSalary, *table)
	return &result, nil
}

// Compute runs the progressive PAYE slabs plus EPF/ETF against one gross
// monthly salary. Slab contributions accumulate as floats and each statutory
// amount is rounded exactly once at the end.
func (s *Service) Compute(grossSalary int64, table ratedomain.RateTable) domain.Computation {
	taxable := grossSalary - table.TaxFreeMonthlyLimit
	if taxable < 0 {
		taxable = 0
	}

	limits := []int64{table.Slab1Limit, table.Slab2Limit, table.Slab3Limit, table.Slab4Limit}
	rates := []float64{table.Slab1Rate, table.Slab2Rate, table.Slab3Rate, table.Slab4Rate}

	var (
		slabs     []domain.SlabTax
		payeFloat float64
		remaining = taxable
	)
	for i, limit := range limits {
		if remaining <= 0 {
			break
		}
		portion := remaining
		if portion > limit {
			portion = limit
		}
		payeFloat += float64(portion) * rates[i] / 100
		slabs = append(slabs, domain.SlabTax{Portion: portion, Rate: rates[i]})
		remaining -= portion
	}
	if remaining > 0 {
		payeFloat += float64(remaining) * table.Slab5Rate / 100
		slabs = append(slabs, domain.SlabTax{Portion: remaining, Rate: table.Slab5Rate})
	}

	paye := int64(math.Round(payeFloat))
	employeeEPF := int64(math.Round(float64(grossSalary) * table.EmployeeEPFRate / 100))
	employerEPF := int64(math.Round(float64(grossSalary) * table.EmployerEPFRate / 100))
	etf := int64(math.Round(float64(grossSalary) * table.ETFRate / 100))

	return domain.Computation{
		GrossSalary:   grossSalary,
		TaxableIncome: taxable,
		PAYE:          paye,
		EmployeeEPF:   employeeEPF,
		EmployerEPF:   employerEPF,
		ETF:           etf,
		NetSalary:     grossSalary - paye - employeeEPF,
		Slabs:         slabs,
		RateTableID:   snowflake.ID(table.ID).String(),
		EffectiveFrom: table.EffectiveFrom,
		RatesUsed: domain.RatesSnapshot{
			TaxFreeMonthlyLimit: table.TaxFreeMonthlyLimit,
			Slab1Rate:           table.Slab1Rate,
			Slab2Rate:           table.Slab2Rate,
			Slab3Rate:           table.Slab3Rate,
			Slab4Rate:           table.Slab4Rate,
			Slab5Rate:           table.Slab5Rate,
			EmployeeEPFRate:     table.EmployeeEPFRate,
			EmployerEPFRate:     table.EmployerEPFRate,
			ETFRate:             table.ETFRate,
		},
	}
}
