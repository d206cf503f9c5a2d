package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Service drives intent creation and settlement. Amounts on an intent always
// come from the invoice being collected, never from the caller.
type Service interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*IntentResponse, error)
	GetIntent(ctx context.Context, id string) (*IntentResponse, error)
	// BuildPayHereCheckout returns the signed form fields the frontend posts
	// to the PayHere checkout page.
	BuildPayHereCheckout(ctx context.Context, intentID string) (map[string]string, error)
	ProcessEvent(ctx context.Context, event *PaymentEvent, payload []byte) error
}

// WebhookService is the ingest edge: resolve the adapter, verify, parse,
// hand off to the payment service.
type WebhookService interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

type CreateIntentRequest struct {
	UserID    string `json:"-"`
	InvoiceID string `json:"invoice_id"`
	Gateway   string `json:"gateway"`
}

type IntentResponse struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	InvoiceID         string    `json:"invoice_id,omitempty"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Gateway           string    `json:"gateway"`
	Status            string    `json:"status"`
	ProviderReference string    `json:"provider_reference,omitempty"`
	ClientSecret      string    `json:"client_secret,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

var (
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidConfig         = errors.New("invalid_provider_config")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrIntentNotFound        = errors.New("payment_intent_not_found")
	ErrInvoiceNotPayable     = errors.New("invoice_not_payable")
	ErrAmountMismatch        = errors.New("amount_mismatch")
	ErrWrongGateway          = errors.New("wrong_gateway")
)
