package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/paylanka/paylanka/internal/access/domain"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
	subscriptiondomain "github.com/paylanka/paylanka/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	SubscriptionRepo subscriptiondomain.Repository
	InvoiceRepo      invoicedomain.Repository
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	subscriptionRepo subscriptiondomain.Repository
	invoiceRepo      invoicedomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("access.service"),
		subscriptionRepo: p.SubscriptionRepo,
		invoiceRepo:      p.InvoiceRepo,
	}
}

func (s *Service) GetAccessStatus(ctx context.Context, userID string) (*domain.Status, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	userIDValue := parsed.Int64()

	active, err := s.subscriptionRepo.FindByUserAndStatus(ctx, s.db, userIDValue, subscriptiondomain.StatusActive)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return &domain.Status{
			UserID: parsed.String(),
			Status: domain.StatusBlocked,
			Reason: domain.ReasonNoActiveSubscription,
		}, nil
	}

	unpaid, err := s.invoiceRepo.FindPendingOrFailedByUser(ctx, s.db, userIDValue)
	if err != nil {
		return nil, err
	}
	if len(unpaid) > 0 {
		ids := make([]string, 0, len(unpaid))
		for _, inv := range unpaid {
			ids = append(ids, snowflake.ID(inv.ID).String())
		}
		return &domain.Status{
			UserID:         parsed.String(),
			Status:         domain.StatusBlocked,
			Reason:         domain.ReasonUnpaidInvoices,
			UnpaidInvoices: ids,
		}, nil
	}

	return &domain.Status{
		UserID: parsed.String(),
		Status: domain.StatusActive,
	}, nil
}
