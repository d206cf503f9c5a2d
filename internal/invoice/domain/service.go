package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	// CreateRegistrationInvoice issues the one-off activation invoice for a
	// subscription. It runs on the caller's transaction so the invoice and
	// the subscription commit together. Re-issuing against an unpaid
	// registration invoice updates it in place.
	CreateRegistrationInvoice(ctx context.Context, tx *gorm.DB, req RegistrationInvoiceRequest) (*Invoice, error)
	// GenerateMonthlyInvoice issues the invoice for one billing month,
	// pricing it from the live active employee count. Calling it again for
	// the same subscription and month returns the existing invoice.
	GenerateMonthlyInvoice(ctx context.Context, req MonthlyInvoiceRequest) (*Invoice, error)
	// MarkPaid settles an invoice on the caller's transaction.
	MarkPaid(ctx context.Context, tx *gorm.DB, invoiceID, paymentIntentID int64, paidAt time.Time) (*Invoice, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, invoiceID int64) (*Invoice, error)
	Get(ctx context.Context, id string) (*Response, error)
	ListByUser(ctx context.Context, userID string) ([]Response, error)
}

type RegistrationInvoiceRequest struct {
	UserID         int64
	SubscriptionID int64
	PlanID         int64
	Amount         int64
	Currency       string
}

type MonthlyInvoiceRequest struct {
	UserID         int64
	SubscriptionID int64
	PlanID         int64
	PricePerUnit   int64
	Currency       string
	BillingMonth   string
}

type Response struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	SubscriptionID  string     `json:"subscription_id"`
	PlanID          string     `json:"plan_id"`
	BillingType     string     `json:"billing_type"`
	BillingMonth    string     `json:"billing_month,omitempty"`
	EmployeeCount   int        `json:"employee_count"`
	PricePerUnit    int64      `json:"price_per_unit"`
	RegistrationFee int64      `json:"registration_fee"`
	TotalAmount     int64      `json:"total_amount"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidBillingMonth = errors.New("invalid_billing_month")
	ErrNotFound            = errors.New("invoice_not_found")
	ErrAlreadyPaid         = errors.New("invoice_already_paid")
	ErrNotPending          = errors.New("invoice_not_pending")
)
