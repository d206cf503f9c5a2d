package domain

import "time"

type BillingType string

const (
	BillingTypeRegistration BillingType = "REGISTRATION"
	BillingTypeMonthly      BillingType = "MONTHLY"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
)

// Invoice amounts are cents. BillingMonth is "YYYY-MM" and set only for
// MONTHLY invoices; a partial unique index keeps one MONTHLY invoice per
// subscription and month, and one REGISTRATION invoice per subscription.
type Invoice struct {
	ID              int64       `json:"id" gorm:"primaryKey"`
	UserID          int64       `json:"user_id" gorm:"not null;index"`
	SubscriptionID  int64       `json:"subscription_id" gorm:"not null"`
	PlanID          int64       `json:"plan_id" gorm:"not null"`
	BillingType     BillingType `json:"billing_type" gorm:"type:text;not null"`
	BillingMonth    string      `json:"billing_month" gorm:"type:text;not null;default:''"`
	EmployeeCount   int         `json:"employee_count" gorm:"not null;default:0"`
	PricePerUnit    int64       `json:"price_per_unit" gorm:"not null;default:0"`
	RegistrationFee int64       `json:"registration_fee" gorm:"not null;default:0"`
	TotalAmount     int64       `json:"total_amount" gorm:"not null"`
	Currency        string      `json:"currency" gorm:"type:text;not null"`
	Status          Status      `json:"status" gorm:"type:text;not null;default:'PENDING'"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
	PaymentIntentID *int64      `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time   `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Invoice) TableName() string { return "invoices" }
