package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}

type CreateRequest struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	EmployeePrice   int64          `json:"employee_price"`
	RegistrationFee int64          `json:"registration_fee"`
	MaxEmployees    int            `json:"max_employees"`
	MaxCompanies    int            `json:"max_companies"`
	Features        map[string]any `json:"features"`
}

type UpdateRequest struct {
	ID              string         `json:"-"`
	Description     *string        `json:"description"`
	EmployeePrice   *int64         `json:"employee_price"`
	RegistrationFee *int64         `json:"registration_fee"`
	MaxEmployees    *int           `json:"max_employees"`
	MaxCompanies    *int           `json:"max_companies"`
	Features        map[string]any `json:"features"`
}

type Response struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	EmployeePrice   int64          `json:"employee_price"`
	RegistrationFee int64          `json:"registration_fee"`
	MaxEmployees    int            `json:"max_employees"`
	MaxCompanies    int            `json:"max_companies"`
	Features        map[string]any `json:"features,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidPrice  = errors.New("invalid_price")
	ErrInvalidLimits = errors.New("invalid_limits")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("plan_not_found")
	ErrDuplicateName = errors.New("duplicate_plan_name")
)
