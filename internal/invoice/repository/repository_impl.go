package repository

import (
	"context"

	"github.com/paylanka/paylanka/internal/invoice/domain"
	"gorm.io/gorm"
)

const invoiceColumns = `id, user_id, subscription_id, plan_id, billing_type, billing_month,
	employee_count, price_per_unit, registration_fee, total_amount, currency,
	status, paid_at, payment_intent_id, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.UserID,
		invoice.SubscriptionID,
		invoice.PlanID,
		invoice.BillingType,
		invoice.BillingMonth,
		invoice.EmployeeCount,
		invoice.PricePerUnit,
		invoice.RegistrationFee,
		invoice.TotalAmount,
		invoice.Currency,
		invoice.Status,
		invoice.PaidAt,
		invoice.PaymentIntentID,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if invoice == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET plan_id = ?, employee_count = ?, price_per_unit = ?, registration_fee = ?,
		     total_amount = ?, status = ?, paid_at = ?, payment_intent_id = ?, updated_at = ?
		 WHERE id = ?`,
		invoice.PlanID,
		invoice.EmployeeCount,
		invoice.PricePerUnit,
		invoice.RegistrationFee,
		invoice.TotalAmount,
		invoice.Status,
		invoice.PaidAt,
		invoice.PaymentIntentID,
		invoice.UpdatedAt,
		invoice.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`,
		id,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) FindRegistration(ctx context.Context, db *gorm.DB, subscriptionID int64) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE subscription_id = ? AND billing_type = ?`,
		subscriptionID,
		domain.BillingTypeRegistration,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) FindMonthly(ctx context.Context, db *gorm.DB, subscriptionID int64, billingMonth string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE subscription_id = ? AND billing_type = ? AND billing_month = ?`,
		subscriptionID,
		domain.BillingTypeMonthly,
		billingMonth,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID int64) ([]domain.Invoice, error) {
	var items []domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindPendingOrFailedByUser(ctx context.Context, db *gorm.DB, userID int64) ([]domain.Invoice, error) {
	var items []domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE user_id = ? AND status IN (?, ?)
		 ORDER BY created_at ASC`,
		userID,
		domain.StatusPending,
		domain.StatusFailed,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountActiveEmployees(ctx context.Context, db *gorm.DB, userID int64) (int, error) {
	var count int
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(e.id) FROM employees e
		 JOIN companies c ON c.id = e.company_id
		 WHERE c.owner_id = ? AND e.status = 'ACTIVE'`,
		userID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
