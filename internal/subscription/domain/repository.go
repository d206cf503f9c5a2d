package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, sub *Subscription) error
	Update(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Subscription, error)
	FindByUserAndStatus(ctx context.Context, db *gorm.DB, userID int64, status Status) (*Subscription, error)
	// CancelActiveExcept cancels every ACTIVE subscription of the user other
	// than keepID. Used when activating a replacement.
	CancelActiveExcept(ctx context.Context, db *gorm.DB, userID, keepID int64, now time.Time) error
	CreateAddon(ctx context.Context, db *gorm.DB, addon *Addon) error
	FindAddons(ctx context.Context, db *gorm.DB, subscriptionID int64) ([]Addon, error)
}
