package domain

import "time"

type Status string

const (
	StatusPendingActivation Status = "PENDING_ACTIVATION"
	StatusActive            Status = "ACTIVE"
	StatusExpired           Status = "EXPIRED"
	StatusCancelled         Status = "CANCELLED"
)

type AddonType string

const (
	AddonTypeExtraEmployees AddonType = "EXTRA_EMPLOYEES"
	AddonTypeExtraCompanies AddonType = "EXTRA_COMPANIES"
)

type Subscription struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	UserID      int64      `json:"user_id" gorm:"not null;index"`
	PlanID      int64      `json:"plan_id" gorm:"not null"`
	Status      Status     `json:"status" gorm:"type:text;not null"`
	SelectedAt  time.Time  `json:"selected_at" gorm:"not null"`
	StartDate   time.Time  `json:"start_date" gorm:"not null"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Addon raises a plan ceiling for one subscription. Value is the number of
// extra seats it grants; it never changes the per employee price.
type Addon struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	SubscriptionID int64     `json:"subscription_id" gorm:"not null;index"`
	Type           AddonType `json:"type" gorm:"type:text;not null"`
	Value          int       `json:"value" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Addon) TableName() string { return "subscription_addons" }

var allowedTransitions = map[Status][]Status{
	StatusPendingActivation: {StatusActive, StatusCancelled},
	StatusActive:            {StatusExpired, StatusCancelled},
}

// IsTransitionAllowed reports whether the state machine permits moving a
// subscription from one status to another. EXPIRED and CANCELLED are
// terminal.
func IsTransitionAllowed(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
