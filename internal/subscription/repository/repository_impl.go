package repository

import (
	"context"
	"time"

	"github.com/paylanka/paylanka/internal/subscription/domain"
	"gorm.io/gorm"
)

const subscriptionColumns = `id, user_id, plan_id, status, selected_at, start_date,
	end_date, activated_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (`+subscriptionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.UserID,
		sub.PlanID,
		sub.Status,
		sub.SelectedAt,
		sub.StartDate,
		sub.EndDate,
		sub.ActivatedAt,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	if sub == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET plan_id = ?, status = ?, selected_at = ?, start_date = ?, end_date = ?,
		     activated_at = ?, updated_at = ?
		 WHERE id = ?`,
		sub.PlanID,
		sub.Status,
		sub.SelectedAt,
		sub.StartDate,
		sub.EndDate,
		sub.ActivatedAt,
		sub.UpdatedAt,
		sub.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`,
		id,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) FindByUserAndStatus(ctx context.Context, db *gorm.DB, userID int64, status domain.Status) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		userID,
		status,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) CancelActiveExcept(ctx context.Context, db *gorm.DB, userID, keepID int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, end_date = ?, updated_at = ?
		 WHERE user_id = ? AND status = ? AND id <> ?`,
		domain.StatusCancelled,
		now,
		now,
		userID,
		domain.StatusActive,
		keepID,
	).Error
}

func (r *repo) CreateAddon(ctx context.Context, db *gorm.DB, addon *domain.Addon) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscription_addons (id, subscription_id, type, value, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		addon.ID,
		addon.SubscriptionID,
		addon.Type,
		addon.Value,
		addon.CreatedAt,
	).Error
}

func (r *repo) FindAddons(ctx context.Context, db *gorm.DB, subscriptionID int64) ([]domain.Addon, error) {
	var items []domain.Addon
	err := db.WithContext(ctx).Raw(
		`SELECT id, subscription_id, type, value, created_at
		 FROM subscription_addons
		 WHERE subscription_id = ? ORDER BY created_at ASC`,
		subscriptionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
