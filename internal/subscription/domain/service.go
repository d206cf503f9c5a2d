package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	// SelectPlan creates a PENDING_ACTIVATION subscription and its
	// registration invoice. Re-selecting while one is pending switches the
	// pending subscription and reprices the unpaid invoice in place.
	SelectPlan(ctx context.Context, req SelectPlanRequest) (*SelectPlanResponse, error)
	// ChangePlan swaps the plan of an active subscriber immediately: the
	// current subscription is cancelled and a replacement starts ACTIVE,
	// carrying the addons over.
	ChangePlan(ctx context.Context, req ChangePlanRequest) (*Response, error)
	// Activate flips a pending subscription to ACTIVE without a payment.
	// Exposed only when bootstrap activation is enabled.
	Activate(ctx context.Context, id string) (*Response, error)
	// ActivateOnPayment runs the activation on the caller's transaction so
	// it commits atomically with the payment settlement.
	ActivateOnPayment(ctx context.Context, tx *gorm.DB, subscriptionID int64, now time.Time) (*Subscription, error)
	Cancel(ctx context.Context, userID string) (*Response, error)
	// RenewMonthly issues (or returns) the current month's invoice for the
	// caller's active subscription so the frontend can collect it without
	// waiting for the scheduler.
	RenewMonthly(ctx context.Context, userID string) (*RenewResult, error)
	AddAddon(ctx context.Context, req AddAddonRequest) (*AddonResponse, error)
	GetCurrent(ctx context.Context, userID string) (*CurrentResponse, error)
	// ExpireDue moves ACTIVE subscriptions whose end date has passed to
	// EXPIRED and returns how many it touched.
	ExpireDue(ctx context.Context) (int, error)
}

type SelectPlanRequest struct {
	UserID string `json:"-"`
	PlanID string `json:"plan_id"`
}

type ChangePlanRequest struct {
	UserID string `json:"-"`
	PlanID string `json:"plan_id"`
}

type AddAddonRequest struct {
	UserID string `json:"-"`
	Type   string `json:"type"`
	Value  int    `json:"value"`
}

type Response struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	PlanID      string     `json:"plan_id"`
	Status      string     `json:"status"`
	SelectedAt  time.Time  `json:"selected_at"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type SelectPlanResponse struct {
	Subscription Response `json:"subscription"`
	InvoiceID    string   `json:"invoice_id"`
	AmountDue    int64    `json:"amount_due"`
	Currency     string   `json:"currency"`
}

type RenewResult struct {
	InvoiceID     string `json:"invoice_id"`
	BillingMonth  string `json:"billing_month"`
	EmployeeCount int    `json:"employee_count"`
	AmountDue     int64  `json:"amount_due"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
}

type AddonResponse struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	Type           string    `json:"type"`
	Value          int       `json:"value"`
	CreatedAt      time.Time `json:"created_at"`
}

type PlanSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	EmployeePrice   int64  `json:"employee_price"`
	RegistrationFee int64  `json:"registration_fee"`
	MaxEmployees    int    `json:"max_employees"`
	MaxCompanies    int    `json:"max_companies"`
}

type CurrentResponse struct {
	Subscription          Response        `json:"subscription"`
	Plan                  PlanSummary     `json:"plan"`
	Addons                []AddonResponse `json:"addons,omitempty"`
	EffectiveMaxEmployees int             `json:"effective_max_employees"`
	EffectiveMaxCompanies int             `json:"effective_max_companies"`
	EmployeeCount         int             `json:"employee_count"`
	CompanyCount          int             `json:"company_count"`
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrUserNotFound         = errors.New("user_not_found")
	ErrEmailNotVerified     = errors.New("email_not_verified")
	ErrPasswordNotSet       = errors.New("password_not_set")
	ErrPlanNotFound         = errors.New("plan_not_found")
	ErrActiveExists         = errors.New("active_subscription_exists")
	ErrNotFound             = errors.New("subscription_not_found")
	ErrNoActiveSubscription = errors.New("no_active_subscription")
	ErrInvalidTransition    = errors.New("invalid_status_transition")
	ErrInvalidAddonType     = errors.New("invalid_addon_type")
	ErrInvalidAddonValue    = errors.New("invalid_addon_value")
	ErrSamePlan             = errors.New("already_on_plan")
)
