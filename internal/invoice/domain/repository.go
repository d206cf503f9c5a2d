package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Invoice, error)
	FindRegistration(ctx context.Context, db *gorm.DB, subscriptionID int64) (*Invoice, error)
	FindMonthly(ctx context.Context, db *gorm.DB, subscriptionID int64, billingMonth string) (*Invoice, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID int64) ([]Invoice, error)
	FindPendingOrFailedByUser(ctx context.Context, db *gorm.DB, userID int64) ([]Invoice, error)
	CountActiveEmployees(ctx context.Context, db *gorm.DB, userID int64) (int, error)
}
