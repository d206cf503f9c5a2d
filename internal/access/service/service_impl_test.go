package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/paylanka/paylanka/internal/access/domain"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
	invoicerepo "github.com/paylanka/paylanka/internal/invoice/repository"
	subscriptiondomain "github.com/paylanka/paylanka/internal/subscription/domain"
	subscriptionrepo "github.com/paylanka/paylanka/internal/subscription/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&subscriptiondomain.Subscription{},
		&invoicedomain.Invoice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:               db,
		Log:              zap.NewNop(),
		SubscriptionRepo: subscriptionrepo.Provide(),
		InvoiceRepo:      invoicerepo.Provide(),
	})
	return svc, db, node
}

func seedSubscription(t *testing.T, db *gorm.DB, node *snowflake.Node, userID int64, status subscriptiondomain.Status) {
	t.Helper()

	now := time.Now().UTC()
	require.NoError(t, db.Create(&subscriptiondomain.Subscription{
		ID:         node.Generate().Int64(),
		UserID:     userID,
		PlanID:     node.Generate().Int64(),
		Status:     status,
		SelectedAt: now,
		StartDate:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error)
}

func seedInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, userID int64, status invoicedomain.Status) int64 {
	t.Helper()

	now := time.Now().UTC()
	id := node.Generate().Int64()
	require.NoError(t, db.Create(&invoicedomain.Invoice{
		ID:             id,
		UserID:         userID,
		SubscriptionID: node.Generate().Int64(),
		PlanID:         node.Generate().Int64(),
		BillingType:    invoicedomain.BillingTypeMonthly,
		BillingMonth:   "2025-06",
		TotalAmount:    120000,
		Currency:       "LKR",
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error)
	return id
}

func TestAccessBlockedWithoutActiveSubscription(t *testing.T) {
	svc, _, node := setup(t)

	userID := node.Generate().Int64()
	status, err := svc.GetAccessStatus(context.Background(), snowflake.ID(userID).String())
	require.NoError(t, err)
	assert.True(t, status.Blocked())
	assert.Equal(t, domain.ReasonNoActiveSubscription, status.Reason)
}

func TestAccessBlockedByPendingActivation(t *testing.T) {
	svc, db, node := setup(t)

	userID := node.Generate().Int64()
	seedSubscription(t, db, node, userID, subscriptiondomain.StatusPendingActivation)

	status, err := svc.GetAccessStatus(context.Background(), snowflake.ID(userID).String())
	require.NoError(t, err)
	assert.True(t, status.Blocked())
	assert.Equal(t, domain.ReasonNoActiveSubscription, status.Reason)
}

func TestAccessBlockedByUnpaidInvoices(t *testing.T) {
	svc, db, node := setup(t)

	userID := node.Generate().Int64()
	seedSubscription(t, db, node, userID, subscriptiondomain.StatusActive)
	pendingID := seedInvoice(t, db, node, userID, invoicedomain.StatusPending)
	failedID := seedInvoice(t, db, node, userID, invoicedomain.StatusFailed)
	seedInvoice(t, db, node, userID, invoicedomain.StatusPaid)

	status, err := svc.GetAccessStatus(context.Background(), snowflake.ID(userID).String())
	require.NoError(t, err)
	assert.True(t, status.Blocked())
	assert.Equal(t, domain.ReasonUnpaidInvoices, status.Reason)
	assert.ElementsMatch(t, []string{
		snowflake.ID(pendingID).String(),
		snowflake.ID(failedID).String(),
	}, status.UnpaidInvoices)
}

func TestAccessActiveWhenSettled(t *testing.T) {
	svc, db, node := setup(t)

	userID := node.Generate().Int64()
	seedSubscription(t, db, node, userID, subscriptiondomain.StatusActive)
	seedInvoice(t, db, node, userID, invoicedomain.StatusPaid)

	status, err := svc.GetAccessStatus(context.Background(), snowflake.ID(userID).String())
	require.NoError(t, err)
	assert.False(t, status.Blocked())
	assert.Equal(t, domain.StatusActive, status.Status)
	assert.Empty(t, status.UnpaidInvoices)
}
