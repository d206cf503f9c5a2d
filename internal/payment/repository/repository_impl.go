package repository

import (
	"context"
	"time"

	"github.com/paylanka/paylanka/internal/payment/domain"
	"github.com/paylanka/paylanka/pkg/db"
	"gorm.io/gorm"
)

const intentColumns = `id, user_id, plan_id, invoice_id, amount, currency, gateway,
	provider_reference, status, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateIntent(ctx context.Context, db *gorm.DB, intent *domain.Intent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_intents (`+intentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		intent.ID,
		intent.UserID,
		intent.PlanID,
		intent.InvoiceID,
		intent.Amount,
		intent.Currency,
		intent.Gateway,
		intent.ProviderReference,
		intent.Status,
		intent.CreatedAt,
		intent.UpdatedAt,
	).Error
}

func (r *repo) UpdateIntent(ctx context.Context, db *gorm.DB, intent *domain.Intent) error {
	if intent == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE payment_intents
		 SET provider_reference = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		intent.ProviderReference,
		intent.Status,
		intent.UpdatedAt,
		intent.ID,
	).Error
}

func (r *repo) FindIntentByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Intent, error) {
	var intent domain.Intent
	err := db.WithContext(ctx).Raw(
		`SELECT `+intentColumns+` FROM payment_intents WHERE id = ?`,
		id,
	).Scan(&intent).Error
	if err != nil {
		return nil, err
	}
	if intent.ID == 0 {
		return nil, nil
	}
	return &intent, nil
}

func (r *repo) FindIntentByProviderReference(ctx context.Context, db *gorm.DB, gateway, reference string) (*domain.Intent, error) {
	var intent domain.Intent
	err := db.WithContext(ctx).Raw(
		`SELECT `+intentColumns+` FROM payment_intents
		 WHERE gateway = ? AND provider_reference = ?`,
		gateway,
		reference,
	).Scan(&intent).Error
	if err != nil {
		return nil, err
	}
	if intent.ID == 0 {
		return nil, nil
	}
	return &intent, nil
}

func (r *repo) InsertEvent(ctx context.Context, gdb *gorm.DB, event *domain.EventRecord) (bool, error) {
	err := gdb.WithContext(ctx).Exec(
		`INSERT INTO payment_events (id, gateway, provider_event_id, event_type, payload, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Gateway,
		event.ProviderEventID,
		event.EventType,
		event.Payload,
		event.ReceivedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) LoadEvent(ctx context.Context, db *gorm.DB, gateway, providerEventID string) (*domain.EventRecord, error) {
	var record domain.EventRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, gateway, provider_event_id, event_type, payload, received_at, processed_at
		 FROM payment_events
		 WHERE gateway = ? AND provider_event_id = ?`,
		gateway,
		providerEventID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id int64, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET processed_at = ? WHERE id = ?`,
		processedAt,
		id,
	).Error
}
