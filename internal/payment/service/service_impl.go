package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/paylanka/paylanka/internal/clock"
	"github.com/paylanka/paylanka/internal/config"
	"github.com/paylanka/paylanka/internal/events"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
	"github.com/paylanka/paylanka/internal/payment/adapters/payhere"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
	subscriptiondomain "github.com/paylanka/paylanka/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          paymentdomain.Repository
	InvoiceRepo   invoicedomain.Repository
	Invoices      invoicedomain.Service
	Subscriptions subscriptiondomain.Service
	PayHere       *payhere.Adapter
	Publisher     events.Publisher
}

type Service struct {
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          paymentdomain.Repository
	invoiceRepo   invoicedomain.Repository
	invoices      invoicedomain.Service
	subscriptions subscriptiondomain.Service
	payhere       *payhere.Adapter
	publisher     events.Publisher
	stripe        *stripeClient
}

func NewService(p Params) *Service {
	return &Service{
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("payment.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		invoiceRepo:   p.InvoiceRepo,
		invoices:      p.Invoices,
		subscriptions: p.Subscriptions,
		payhere:       p.PayHere,
		publisher:     p.Publisher,
		stripe:        newStripeClient(p.Cfg.Stripe.SecretKey),
	}
}

func (s *Service) CreateIntent(ctx context.Context, req paymentdomain.CreateIntentRequest) (*paymentdomain.IntentResponse, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return nil, paymentdomain.ErrInvalidID
	}
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return nil, paymentdomain.ErrInvalidID
	}

	gateway := strings.ToLower(strings.TrimSpace(req.Gateway))
	if gateway != "stripe" && gateway != "payhere" {
		return nil, paymentdomain.ErrInvalidProvider
	}

	inv, err := s.invoiceRepo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.UserID != userID || inv.Status == invoicedomain.StatusPaid {
		return nil, paymentdomain.ErrInvoiceNotPayable
	}

	now := s.clock.Now()
	intent := &paymentdomain.Intent{
		ID:        s.genID.Generate().Int64(),
		UserID:    userID,
		PlanID:    inv.PlanID,
		InvoiceID: &inv.ID,
		Amount:    inv.TotalAmount,
		Currency:  inv.Currency,
		Gateway:   gateway,
		Status:    paymentdomain.IntentStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if gateway == "payhere" {
		// The order id is generated and persisted before any payload leaves
		// this process, so a notify callback can never race the insert.
		orderID := uuid.NewString()
		intent.ProviderReference = &orderID
	}

	if err := s.repo.CreateIntent(ctx, s.db, intent); err != nil {
		return nil, err
	}

	resp := toIntentResponse(intent)

	if gateway == "stripe" {
		providerIntent, err := s.stripe.createPaymentIntent(ctx, intent.Amount, intent.Currency, map[string]string{
			"intent_id":  snowflake.ID(intent.ID).String(),
			"user_id":    snowflake.ID(intent.UserID).String(),
			"plan_id":    snowflake.ID(intent.PlanID).String(),
			"invoice_id": snowflake.ID(inv.ID).String(),
		}, "intent:"+snowflake.ID(intent.ID).String())
		if err != nil {
			return nil, err
		}

		intent.ProviderReference = &providerIntent.ID
		intent.Status = paymentdomain.IntentStatusProcessing
		intent.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateIntent(ctx, s.db, intent); err != nil {
			return nil, err
		}

		resp.Status = string(intent.Status)
		resp.ProviderReference = providerIntent.ID
		resp.ClientSecret = providerIntent.ClientSecret
	}

	s.log.Info("payment intent created",
		zap.Int64("intent_id", intent.ID),
		zap.Int64("invoice_id", inv.ID),
		zap.String("gateway", gateway),
		zap.Int64("amount", intent.Amount),
	)

	return &resp, nil
}

func (s *Service) GetIntent(ctx context.Context, id string) (*paymentdomain.IntentResponse, error) {
	intentID, err := parseID(id)
	if err != nil {
		return nil, paymentdomain.ErrInvalidID
	}

	intent, err := s.repo.FindIntentByID(ctx, s.db, intentID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, paymentdomain.ErrIntentNotFound
	}

	resp := toIntentResponse(intent)
	return &resp, nil
}

func (s *Service) BuildPayHereCheckout(ctx context.Context, intentID string) (map[string]string, error) {
	parsed, err := parseID(intentID)
	if err != nil {
		return nil, paymentdomain.ErrInvalidID
	}

	intent, err := s.repo.FindIntentByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, paymentdomain.ErrIntentNotFound
	}
	if intent.Gateway != "payhere" {
		return nil, paymentdomain.ErrWrongGateway
	}
	if intent.Status == paymentdomain.IntentStatusSucceeded {
		return nil, paymentdomain.ErrInvoiceNotPayable
	}
	if intent.ProviderReference == nil {
		return nil, paymentdomain.ErrIntentNotFound
	}

	item := "Subscription payment"
	if intent.InvoiceID != nil {
		inv, err := s.invoiceRepo.FindByID(ctx, s.db, *intent.InvoiceID)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			switch inv.BillingType {
			case invoicedomain.BillingTypeRegistration:
				item = "Registration fee"
			case invoicedomain.BillingTypeMonthly:
				item = "Monthly subscription " + inv.BillingMonth
			}
		}
	}

	// Issuing the payload hands the order id to the gateway, so the intent
	// is in flight from here on.
	if intent.Status == paymentdomain.IntentStatusCreated {
		intent.Status = paymentdomain.IntentStatusProcessing
		intent.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateIntent(ctx, s.db, intent); err != nil {
			return nil, err
		}
	}

	orderID := *intent.ProviderReference
	return map[string]string{
		"checkout_url": s.cfg.PayHere.CheckoutURL,
		"merchant_id":  s.payhere.MerchantID(),
		"return_url":   s.cfg.PayHere.ReturnURL,
		"cancel_url":   s.cfg.PayHere.CancelURL,
		"notify_url":   s.cfg.PayHere.NotifyURL,
		"order_id":     orderID,
		"items":        item,
		"currency":     intent.Currency,
		"amount":       payhere.FormatAmount(intent.Amount),
		"hash":         s.payhere.SignCheckout(orderID, intent.Amount, intent.Currency),
	}, nil
}

func (s *Service) ProcessEvent(ctx context.Context, event *paymentdomain.PaymentEvent, payload []byte) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	now := s.clock.Now()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate().Int64(),
		Gateway:         event.Gateway,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(toStoredPayload(payload)),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.LoadEvent(ctx, s.db, event.Gateway, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.settle(ctx, event); err != nil {
		return err
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, now)
}

func (s *Service) settle(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		intent, err := s.resolveIntent(ctx, tx, event)
		if err != nil {
			return err
		}
		if intent.Status == paymentdomain.IntentStatusSucceeded {
			// Settled already, by this event's twin or another notify.
			return nil
		}

		now := s.clock.Now()
		switch event.Type {
		case paymentdomain.EventTypePaymentSucceeded:
			return s.settleSuccess(ctx, tx, intent, event, now)
		case paymentdomain.EventTypePaymentFailed:
			return s.settleFailure(ctx, tx, intent, now)
		default:
			return paymentdomain.ErrInvalidEvent
		}
	})
}

func (s *Service) settleSuccess(ctx context.Context, tx *gorm.DB, intent *paymentdomain.Intent, event *paymentdomain.PaymentEvent, now time.Time) error {
	if event.Amount != intent.Amount || event.Currency != intent.Currency {
		// A gateway confirming a different amount than we asked for is
		// recorded, never honored.
		s.log.Warn("payment amount mismatch",
			zap.Int64("intent_id", intent.ID),
			zap.Int64("expected_amount", intent.Amount),
			zap.Int64("reported_amount", event.Amount),
			zap.String("expected_currency", intent.Currency),
			zap.String("reported_currency", event.Currency),
		)
		payload, err := json.Marshal(map[string]any{
			"intent_id":         snowflake.ID(intent.ID).String(),
			"expected_amount":   intent.Amount,
			"reported_amount":   event.Amount,
			"expected_currency": intent.Currency,
			"reported_currency": event.Currency,
			"provider_event_id": event.ProviderEventID,
		})
		if err != nil {
			return err
		}
		return s.publisher.PublishTx(tx, events.PaymentMismatchTopic, payload)
	}

	intent.Status = paymentdomain.IntentStatusSucceeded
	intent.UpdatedAt = now
	if err := s.repo.UpdateIntent(ctx, tx, intent); err != nil {
		return err
	}

	if intent.InvoiceID == nil {
		return nil
	}

	inv, err := s.invoiceRepo.FindByID(ctx, tx, *intent.InvoiceID)
	if err != nil {
		return err
	}
	if inv == nil {
		return paymentdomain.ErrInvoiceNotPayable
	}

	if _, err := s.invoices.MarkPaid(ctx, tx, inv.ID, intent.ID, event.OccurredAt); err != nil {
		if !errors.Is(err, invoicedomain.ErrAlreadyPaid) {
			return err
		}
	}

	if inv.BillingType == invoicedomain.BillingTypeRegistration {
		if _, err := s.subscriptions.ActivateOnPayment(ctx, tx, inv.SubscriptionID, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) settleFailure(ctx context.Context, tx *gorm.DB, intent *paymentdomain.Intent, now time.Time) error {
	intent.Status = paymentdomain.IntentStatusFailed
	intent.UpdatedAt = now
	if err := s.repo.UpdateIntent(ctx, tx, intent); err != nil {
		return err
	}

	if intent.InvoiceID == nil {
		return nil
	}
	if _, err := s.invoices.MarkFailed(ctx, tx, *intent.InvoiceID); err != nil {
		if !errors.Is(err, invoicedomain.ErrAlreadyPaid) {
			return err
		}
	}
	return nil
}

func (s *Service) resolveIntent(ctx context.Context, tx *gorm.DB, event *paymentdomain.PaymentEvent) (*paymentdomain.Intent, error) {
	if event.IntentID != 0 {
		intent, err := s.repo.FindIntentByID(ctx, tx, event.IntentID)
		if err != nil {
			return nil, err
		}
		if intent == nil {
			return nil, paymentdomain.ErrIntentNotFound
		}
		return intent, nil
	}

	reference := strings.TrimSpace(event.ProviderReference)
	if reference == "" {
		return nil, paymentdomain.ErrIntentNotFound
	}
	intent, err := s.repo.FindIntentByProviderReference(ctx, tx, event.Gateway, reference)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, paymentdomain.ErrIntentNotFound
	}
	return intent, nil
}

func validateEvent(event *paymentdomain.PaymentEvent) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}
	event.Gateway = strings.ToLower(strings.TrimSpace(event.Gateway))
	if event.Gateway == "" {
		return paymentdomain.ErrInvalidProvider
	}
	event.ProviderEventID = strings.TrimSpace(event.ProviderEventID)
	if event.ProviderEventID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	event.Type = strings.TrimSpace(event.Type)
	if event.Type == "" {
		return paymentdomain.ErrInvalidEvent
	}
	currency := strings.TrimSpace(event.Currency)
	if currency == "" {
		return paymentdomain.ErrInvalidCurrency
	}
	event.Currency = strings.ToUpper(currency)
	if event.OccurredAt.IsZero() {
		return paymentdomain.ErrInvalidEvent
	}
	return nil
}

// toStoredPayload keeps the payload column valid JSON even for form encoded
// notify bodies.
func toStoredPayload(payload []byte) []byte {
	if json.Valid(payload) {
		return payload
	}
	wrapped, err := json.Marshal(map[string]string{"raw": string(payload)})
	if err != nil {
		return []byte(`{}`)
	}
	return wrapped
}

func toIntentResponse(intent *paymentdomain.Intent) paymentdomain.IntentResponse {
	resp := paymentdomain.IntentResponse{
		ID:        snowflake.ID(intent.ID).String(),
		UserID:    snowflake.ID(intent.UserID).String(),
		Amount:    intent.Amount,
		Currency:  intent.Currency,
		Gateway:   intent.Gateway,
		Status:    string(intent.Status),
		CreatedAt: intent.CreatedAt,
	}
	if intent.InvoiceID != nil {
		resp.InvoiceID = snowflake.ID(*intent.InvoiceID).String()
	}
	if intent.ProviderReference != nil {
		resp.ProviderReference = *intent.ProviderReference
	}
	return resp
}

func parseID(value string) (int64, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return parsed.Int64(), nil
}
