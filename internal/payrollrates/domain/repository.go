package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, table *RateTable) error
	Update(ctx context.Context, db *gorm.DB, table *RateTable) error
	DeactivateAll(ctx context.Context, db *gorm.DB, now time.Time) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*RateTable, error)
	FindActive(ctx context.Context, db *gorm.DB) (*RateTable, error)
	FindForDate(ctx context.Context, db *gorm.DB, date time.Time) (*RateTable, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]RateTable, error)
}
