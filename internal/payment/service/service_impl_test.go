package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/paylanka/paylanka/internal/clock"
	"github.com/paylanka/paylanka/internal/config"
	"github.com/paylanka/paylanka/internal/events"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
	invoicerepo "github.com/paylanka/paylanka/internal/invoice/repository"
	invoiceservice "github.com/paylanka/paylanka/internal/invoice/service"
	"github.com/paylanka/paylanka/internal/payment/adapters/payhere"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
	paymentrepo "github.com/paylanka/paylanka/internal/payment/repository"
	paymentservice "github.com/paylanka/paylanka/internal/payment/service"
	plandomain "github.com/paylanka/paylanka/internal/plan/domain"
	planrepo "github.com/paylanka/paylanka/internal/plan/repository"
	subscriptiondomain "github.com/paylanka/paylanka/internal/subscription/domain"
	subscriptionrepo "github.com/paylanka/paylanka/internal/subscription/repository"
	subscriptionservice "github.com/paylanka/paylanka/internal/subscription/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) PublishTx(tx *gorm.DB, topic string, payload []byte) error {
	p.topics = append(p.topics, topic)
	return nil
}

type fixture struct {
	svc       *paymentservice.Service
	subs      subscriptiondomain.Service
	invoices  invoicedomain.Service
	db        *gorm.DB
	node      *snowflake.Node
	publisher *recordingPublisher
	clk       *clock.FakeClock
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&paymentdomain.Intent{},
		&paymentdomain.EventRecord{},
		&invoicedomain.Invoice{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.Addon{},
		&plandomain.Plan{},
	))
	require.NoError(t, db.Exec(`CREATE TABLE users (
		id BIGINT PRIMARY KEY,
		is_email_verified BOOLEAN NOT NULL DEFAULT TRUE,
		is_password_set BOOLEAN NOT NULL DEFAULT TRUE
	)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE companies (
		id BIGINT PRIMARY KEY,
		owner_id BIGINT NOT NULL
	)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE employees (
		id BIGINT PRIMARY KEY,
		company_id BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ACTIVE'
	)`).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX ux_payment_events_provider_event
		ON payment_events(gateway, provider_event_id)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	clk := clock.NewFakeClock(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))
	cfg := config.Config{
		DefaultCurrency: "LKR",
		PayHere: config.PayHereConfig{
			MerchantID:     "1211149",
			MerchantSecret: "merchant_secret",
			CheckoutURL:    "https://sandbox.payhere.lk/pay/checkout",
			ReturnURL:      "https://app.example.lk/billing/return",
			CancelURL:      "https://app.example.lk/billing/cancel",
			NotifyURL:      "https://app.example.lk/payments/payhere/webhook",
		},
	}

	invoiceSvc := invoiceservice.New(invoiceservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      invoicerepo.Provide(),
		Publisher: publisher,
	})
	subscriptionSvc := subscriptionservice.New(subscriptionservice.Params{
		Cfg:       cfg,
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      subscriptionrepo.Provide(),
		PlanRepo:  planrepo.Provide(),
		Invoices:  invoiceSvc,
		Publisher: publisher,
	})

	payhereAdapter, err := payhere.New(cfg.PayHere.MerchantID, cfg.PayHere.MerchantSecret)
	require.NoError(t, err)

	svc := paymentservice.NewService(paymentservice.Params{
		Cfg:           cfg,
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clk,
		Repo:          paymentrepo.Provide(),
		InvoiceRepo:   invoicerepo.Provide(),
		Invoices:      invoiceSvc,
		Subscriptions: subscriptionSvc,
		PayHere:       payhereAdapter,
		Publisher:     publisher,
	})

	return &fixture{
		svc:       svc,
		subs:      subscriptionSvc,
		invoices:  invoiceSvc,
		db:        db,
		node:      node,
		publisher: publisher,
		clk:       clk,
	}
}

// selectPlan seeds a verified user and a plan, then runs plan selection,
// returning the user id, subscription id and pending registration invoice id.
func (f *fixture) selectPlan(t *testing.T) (int64, string, string) {
	t.Helper()

	userID := f.node.Generate().Int64()
	require.NoError(t, f.db.Exec(
		`INSERT INTO users (id, is_email_verified, is_password_set) VALUES (?, TRUE, TRUE)`,
		userID,
	).Error)

	now := f.clk.Now()
	plan := &plandomain.Plan{
		ID:              f.node.Generate().Int64(),
		Name:            "Basic-" + snowflake.ID(userID).String(),
		EmployeePrice:   10000,
		RegistrationFee: 250000,
		MaxEmployees:    30,
		MaxCompanies:    2,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, f.db.Create(plan).Error)

	resp, err := f.subs.SelectPlan(context.Background(), subscriptiondomain.SelectPlanRequest{
		UserID: snowflake.ID(userID).String(),
		PlanID: snowflake.ID(plan.ID).String(),
	})
	require.NoError(t, err)
	return userID, resp.Subscription.ID, resp.InvoiceID
}

func (f *fixture) createPayHereIntent(t *testing.T, userID int64, invoiceID string) *paymentdomain.IntentResponse {
	t.Helper()

	intent, err := f.svc.CreateIntent(context.Background(), paymentdomain.CreateIntentRequest{
		UserID:    snowflake.ID(userID).String(),
		InvoiceID: invoiceID,
		Gateway:   "payhere",
	})
	require.NoError(t, err)
	require.NotEmpty(t, intent.ProviderReference)
	return intent
}

func payhereEvent(intent *paymentdomain.IntentResponse, eventType string, amount int64, paymentID string) *paymentdomain.PaymentEvent {
	statusCode := "2"
	if eventType == paymentdomain.EventTypePaymentFailed {
		statusCode = "-2"
	}
	return &paymentdomain.PaymentEvent{
		Gateway:           "payhere",
		ProviderEventID:   paymentID + ":" + statusCode,
		ProviderPaymentID: paymentID,
		Type:              eventType,
		ProviderReference: intent.ProviderReference,
		Amount:            amount,
		Currency:          "LKR",
		OccurredAt:        time.Date(2025, 6, 15, 10, 5, 0, 0, time.UTC),
		RawPayload:        []byte("order_id=" + intent.ProviderReference),
	}
}

func TestProcessEventSettlesRegistrationPayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	userID, subscriptionID, invoiceID := f.selectPlan(t)
	intent := f.createPayHereIntent(t, userID, invoiceID)

	event := payhereEvent(intent, paymentdomain.EventTypePaymentSucceeded, 250000, "320025")
	require.NoError(t, f.svc.ProcessEvent(ctx, event, event.RawPayload))

	settled, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, string(paymentdomain.IntentStatusSucceeded), settled.Status)

	inv, err := f.invoices.Get(ctx, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, string(invoicedomain.StatusPaid), inv.Status)
	require.NotNil(t, inv.PaidAt)

	current, err := f.subs.GetCurrent(ctx, snowflake.ID(userID).String())
	require.NoError(t, err)
	assert.Equal(t, subscriptionID, current.Subscription.ID)
	assert.Equal(t, string(subscriptiondomain.StatusActive), current.Subscription.Status)
	assert.Contains(t, f.publisher.topics, events.SubscriptionActivatedTopic)
}

func TestProcessEventDeduplicatesReplays(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	userID, _, invoiceID := f.selectPlan(t)
	intent := f.createPayHereIntent(t, userID, invoiceID)

	event := payhereEvent(intent, paymentdomain.EventTypePaymentSucceeded, 250000, "320025")
	require.NoError(t, f.svc.ProcessEvent(ctx, event, event.RawPayload))

	replay := payhereEvent(intent, paymentdomain.EventTypePaymentSucceeded, 250000, "320025")
	err := f.svc.ProcessEvent(ctx, replay, replay.RawPayload)
	assert.True(t, errors.Is(err, paymentdomain.ErrEventAlreadyProcessed))
}

func TestProcessEventToleratesSecondNotifyForSettledIntent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	userID, _, invoiceID := f.selectPlan(t)
	intent := f.createPayHereIntent(t, userID, invoiceID)

	first := payhereEvent(intent, paymentdomain.EventTypePaymentSucceeded, 250000, "320025")
	require.NoError(t, f.svc.ProcessEvent(ctx, first, first.RawPayload))

	// Distinct gateway event for the same already-settled intent.
	second := payhereEvent(intent, paymentdomain.EventTypePaymentSucceeded, 250000, "320099")
	require.NoError(t, f.svc.ProcessEvent(ctx, second, second.RawPayload))

	settled, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, string(paymentdomain.IntentStatusSucceeded), settled.Status)
}

func TestProcessEventAmountMismatchRecordsWithoutSettling(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	userID, _, invoiceID := f.selectPlan(t)
	intent := f.createPayHereIntent(t, userID, invoiceID)

	event := payhereEvent(intent, paymentdomain.EventTypePaymentSucceeded, 100, "320025")
	require.NoError(t, f.svc.ProcessEvent(ctx, event, event.RawPayload))

	unsettled, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, string(paymentdomain.IntentStatusCreated), unsettled.Status)

	inv, err := f.invoices.Get(ctx, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, string(invoicedomain.StatusPending), inv.Status)
	assert.Contains(t, f.publisher.topics, events.PaymentMismatchTopic)
}

func TestProcessEventFailureMarksInvoiceFailed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	userID, _, invoiceID := f.selectPlan(t)
	intent := f.createPayHereIntent(t, userID, invoiceID)

	event := payhereEvent(intent, paymentdomain.EventTypePaymentFailed, 250000, "320025")
	require.NoError(t, f.svc.ProcessEvent(ctx, event, event.RawPayload))

	failed, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, string(paymentdomain.IntentStatusFailed), failed.Status)

	inv, err := f.invoices.Get(ctx, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, string(invoicedomain.StatusFailed), inv.Status)
}

func TestProcessEventUnknownIntent(t *testing.T) {
	f := setup(t)

	event := &paymentdomain.PaymentEvent{
		Gateway:           "payhere",
		ProviderEventID:   "999999:2",
		ProviderPaymentID: "999999",
		Type:              paymentdomain.EventTypePaymentSucceeded,
		ProviderReference: "no-such-order",
		Amount:            250000,
		Currency:          "LKR",
		OccurredAt:        time.Now().UTC(),
	}
	err := f.svc.ProcessEvent(context.Background(), event, []byte("order_id=no-such-order"))
	assert.True(t, errors.Is(err, paymentdomain.ErrIntentNotFound))
}

func TestCreateIntentValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	userID, _, invoiceID := f.selectPlan(t)

	_, err := f.svc.CreateIntent(ctx, paymentdomain.CreateIntentRequest{
		UserID:    snowflake.ID(userID).String(),
		InvoiceID: invoiceID,
		Gateway:   "paypal",
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrInvalidProvider))

	// Another user's invoice is not payable.
	otherID := f.node.Generate().Int64()
	_, err = f.svc.CreateIntent(ctx, paymentdomain.CreateIntentRequest{
		UserID:    snowflake.ID(otherID).String(),
		InvoiceID: invoiceID,
		Gateway:   "payhere",
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrInvoiceNotPayable))

	intent := f.createPayHereIntent(t, userID, invoiceID)
	event := payhereEvent(intent, paymentdomain.EventTypePaymentSucceeded, 250000, "320025")
	require.NoError(t, f.svc.ProcessEvent(ctx, event, event.RawPayload))

	_, err = f.svc.CreateIntent(ctx, paymentdomain.CreateIntentRequest{
		UserID:    snowflake.ID(userID).String(),
		InvoiceID: invoiceID,
		Gateway:   "payhere",
	})
	assert.True(t, errors.Is(err, paymentdomain.ErrInvoiceNotPayable))
}

func TestBuildPayHereCheckout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	userID, _, invoiceID := f.selectPlan(t)
	intent := f.createPayHereIntent(t, userID, invoiceID)

	fields, err := f.svc.BuildPayHereCheckout(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, "1211149", fields["merchant_id"])
	assert.Equal(t, intent.ProviderReference, fields["order_id"])
	assert.Equal(t, "Registration fee", fields["items"])
	assert.Equal(t, "LKR", fields["currency"])
	assert.Equal(t, "2500.00", fields["amount"])
	assert.NotEmpty(t, fields["hash"])
	assert.Equal(t, "https://sandbox.payhere.lk/pay/checkout", fields["checkout_url"])

	// Handing out the payload moves the intent in flight.
	inFlight, err := f.svc.GetIntent(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, string(paymentdomain.IntentStatusProcessing), inFlight.Status)

	event := payhereEvent(intent, paymentdomain.EventTypePaymentSucceeded, 250000, "320025")
	require.NoError(t, f.svc.ProcessEvent(ctx, event, event.RawPayload))

	_, err = f.svc.BuildPayHereCheckout(ctx, intent.ID)
	assert.True(t, errors.Is(err, paymentdomain.ErrInvoiceNotPayable))
}
