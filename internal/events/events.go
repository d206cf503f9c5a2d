package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SubscriptionActivatedTopic = "subscription.activated"
	SubscriptionCancelledTopic = "subscription.cancelled"
	InvoicePaidTopic           = "invoice.paid"
	PaymentMismatchTopic       = "payment.amount_mismatch"
	MonthlyInvoiceIssuedTopic  = "invoice.monthly_issued"
)

// Publisher records billing events for downstream consumers. The write shares
// the caller's transaction when the caller passes a transactional *gorm.DB.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	PublishTx(tx *gorm.DB, topic string, payload []byte) error
}

type outboxPublisher struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutboxPublisher(db *gorm.DB, genID *snowflake.Node) Publisher {
	return &outboxPublisher{
		db:    db,
		genID: genID,
	}
}

func (p *outboxPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.PublishTx(p.db.WithContext(ctx), topic, payload)
}

func (p *outboxPublisher) PublishTx(tx *gorm.DB, topic string, payload []byte) error {
	now := time.Now().UTC()
	return tx.Exec(
		`INSERT INTO billing_events (id, topic, payload, published, created_at)
		 VALUES (?, ?, ?, false, ?)`,
		p.genID.Generate(),
		topic,
		datatypes.JSON(payload),
		now,
	).Error
}

var Module = fx.Module("events",
	fx.Provide(NewOutboxPublisher),
)
