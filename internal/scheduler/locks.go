package scheduler

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type workSubscription struct {
	ID            int64
	UserID        int64
	PlanID        int64
	EmployeePrice int64
}

// fetchSubscriptionsForBilling claims ACTIVE subscriptions that still lack an
// invoice for the billing month. SKIP LOCKED keeps replicas from chewing the
// same batch; the unique index on (subscription_id, billing_month) is the
// backstop if two still collide.
func (s *Scheduler) fetchSubscriptionsForBilling(ctx context.Context, billingMonth string, limit int) ([]workSubscription, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var subscriptions []workSubscription
	err := s.db.WithContext(claimCtx).Transaction(func(tx *gorm.DB) error {
		return tx.Raw(
			`SELECT s.id, s.user_id, s.plan_id, p.employee_price
			 FROM subscriptions s
			 JOIN plans p ON p.id = s.plan_id
			 WHERE s.status = 'ACTIVE'
			   AND NOT EXISTS (
			     SELECT 1 FROM invoices i
			     WHERE i.subscription_id = s.id
			       AND i.billing_type = 'MONTHLY'
			       AND i.billing_month = ?
			   )
			 ORDER BY s.id
			 FOR UPDATE SKIP LOCKED
			 LIMIT ?`,
			billingMonth,
			limit,
		).Scan(&subscriptions).Error
	})
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}
