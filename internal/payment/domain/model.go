package domain

import (
	"time"

	"gorm.io/datatypes"
)

type IntentStatus string

// An intent moves CREATED -> PROCESSING once the gateway has been handed a
// reference to collect against, then to one of the terminal states.
const (
	IntentStatusCreated    IntentStatus = "CREATED"
	IntentStatusProcessing IntentStatus = "PROCESSING"
	IntentStatusSucceeded  IntentStatus = "SUCCEEDED"
	IntentStatusFailed     IntentStatus = "FAILED"
	IntentStatusCanceled   IntentStatus = "CANCELED"
)

// Intent tracks one attempt to collect an invoice through a gateway.
// ProviderReference is the gateway-side identifier: the Stripe payment intent
// id, or the order id handed to PayHere. It is written before any redirect so
// the notification can always be matched back.
type Intent struct {
	ID                int64        `json:"id" gorm:"primaryKey"`
	UserID            int64        `json:"user_id" gorm:"not null;index"`
	PlanID            int64        `json:"plan_id" gorm:"not null"`
	InvoiceID         *int64       `json:"invoice_id,omitempty"`
	Amount            int64        `json:"amount" gorm:"not null"`
	Currency          string       `json:"currency" gorm:"type:text;not null"`
	Gateway           string       `json:"gateway" gorm:"type:text;not null"`
	ProviderReference *string      `json:"provider_reference,omitempty"`
	Status            IntentStatus `json:"status" gorm:"type:text;not null;default:'CREATED'"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Intent) TableName() string { return "payment_intents" }

// EventRecord is the dedupe ledger for gateway notifications. The unique
// index on (gateway, provider_event_id) makes replays visible as conflicts.
type EventRecord struct {
	ID              int64          `json:"id" gorm:"primaryKey"`
	Gateway         string         `json:"gateway" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventTypePaymentSucceeded = "payment_succeeded"
	EventTypePaymentFailed    = "payment_failed"
)

// PaymentEvent is the canonical event parsed by adapters. IntentID is set
// when the gateway echoes our metadata back; ProviderReference is set when
// the gateway only knows the order id it was given.
type PaymentEvent struct {
	Gateway           string
	ProviderEventID   string
	ProviderPaymentID string
	Type              string
	IntentID          int64
	ProviderReference string
	Amount            int64
	Currency          string
	OccurredAt        time.Time
	RawPayload        []byte
}
