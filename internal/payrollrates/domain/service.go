package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	GetActive(ctx context.Context) (*Response, error)
	// GetForDate resolves the table whose effective_from is the latest one at
	// or before the given date, falling back to the active table when no
	// table predates it.
	GetForDate(ctx context.Context, date time.Time) (*RateTable, error)
}

type CreateRequest struct {
	EffectiveFrom       time.Time `json:"effective_from"`
	TaxFreeMonthlyLimit int64     `json:"tax_free_monthly_limit"`
	Slab1Limit          int64     `json:"slab1_limit"`
	Slab1Rate           float64   `json:"slab1_rate"`
	Slab2Limit          int64     `json:"slab2_limit"`
	Slab2Rate           float64   `json:"slab2_rate"`
	Slab3Limit          int64     `json:"slab3_limit"`
	Slab3Rate           float64   `json:"slab3_rate"`
	Slab4Limit          int64     `json:"slab4_limit"`
	Slab4Rate           float64   `json:"slab4_rate"`
	Slab5Rate           float64   `json:"slab5_rate"`
	EmployeeEPFRate     float64   `json:"employee_epf_rate"`
	EmployerEPFRate     float64   `json:"employer_epf_rate"`
	ETFRate             float64   `json:"etf_rate"`
}

type UpdateRequest struct {
	ID                  string   `json:"-"`
	TaxFreeMonthlyLimit *int64   `json:"tax_free_monthly_limit"`
	Slab1Limit          *int64   `json:"slab1_limit"`
	Slab1Rate           *float64 `json:"slab1_rate"`
	Slab2Limit          *int64   `json:"slab2_limit"`
	Slab2Rate           *float64 `json:"slab2_rate"`
	Slab3Limit          *int64   `json:"slab3_limit"`
	Slab3Rate           *float64 `json:"slab3_rate"`
	Slab4Limit          *int64   `json:"slab4_limit"`
	Slab4Rate           *float64 `json:"slab4_rate"`
	Slab5Rate           *float64 `json:"slab5_rate"`
	EmployeeEPFRate     *float64 `json:"employee_epf_rate"`
	EmployerEPFRate     *float64 `json:"employer_epf_rate"`
	ETFRate             *float64 `json:"etf_rate"`
}

type Response struct {
	ID                  string    `json:"id"`
	EffectiveFrom       time.Time `json:"effective_from"`
	TaxFreeMonthlyLimit int64     `json:"tax_free_monthly_limit"`
	Slab1Limit          int64     `json:"slab1_limit"`
	Slab1Rate           float64   `json:"slab1_rate"`
	Slab2Limit          int64     `json:"slab2_limit"`
	Slab2Rate           float64   `json:"slab2_rate"`
	Slab3Limit          int64     `json:"slab3_limit"`
	Slab3Rate           float64   `json:"slab3_rate"`
	Slab4Limit          int64     `json:"slab4_limit"`
	Slab4Rate           float64   `json:"slab4_rate"`
	Slab5Rate           float64   `json:"slab5_rate"`
	EmployeeEPFRate     float64   `json:"employee_epf_rate"`
	EmployerEPFRate     float64   `json:"employer_epf_rate"`
	ETFRate             float64   `json:"etf_rate"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidEffectiveFrom = errors.New("invalid_effective_from")
	ErrInvalidRates         = errors.New("invalid_rates")
	ErrNotFound             = errors.New("rate_table_not_found")
	ErrNoActiveTable        = errors.New("no_active_rate_table")
)
