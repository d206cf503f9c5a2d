package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	CreateIntent(ctx context.Context, db *gorm.DB, intent *Intent) error
	UpdateIntent(ctx context.Context, db *gorm.DB, intent *Intent) error
	FindIntentByID(ctx context.Context, db *gorm.DB, id int64) (*Intent, error)
	FindIntentByProviderReference(ctx context.Context, db *gorm.DB, gateway, reference string) (*Intent, error)
	// InsertEvent returns false without error when the event id was already
	// recorded for the gateway.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	LoadEvent(ctx context.Context, db *gorm.DB, gateway, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id int64, processedAt time.Time) error
}
