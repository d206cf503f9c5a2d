package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/paylanka/paylanka/internal/payment/adapters"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
	paymentservice "github.com/paylanka/paylanka/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc *paymentservice.Service
	Adapters   *adapters.Registry
}

type Service struct {
	log        *zap.Logger
	paymentSvc *paymentservice.Service
	adapters   *adapters.Registry
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
		adapters:   p.Adapters,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}

	adapter, err := s.adapters.Adapter(provider)
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return nil
		}
		return err
	}
	if event.RawPayload == nil {
		event.RawPayload = payload
	}

	if err := s.paymentSvc.ProcessEvent(ctx, event, payload); err != nil {
		if errors.Is(err, paymentdomain.ErrIntentNotFound) {
			s.log.Warn("webhook references unknown intent",
				zap.String("provider", provider),
				zap.String("provider_event_id", event.ProviderEventID),
				zap.String("provider_reference", event.ProviderReference),
			)
		}
		return err
	}
	return nil
}
