package domain

import (
	"context"
	"errors"
	"time"

	ratedomain "github.com/paylanka/paylanka/internal/payrollrates/domain"
)

type Service interface {
	// ComputeForDate resolves the rate table for the date and runs the
	// deduction math against it.
	ComputeForDate(ctx context.Context, grossSalary int64, date time.Time) (*Computation, error)
	// Compute is the pure slab calculation against an explicit table.
	Compute(grossSalary int64, table ratedomain.RateTable) Computation
}

var ErrInvalidGross = errors.New("invalid_gross_salary")
