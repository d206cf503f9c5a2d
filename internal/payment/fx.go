package payment

import (
	"github.com/paylanka/paylanka/internal/config"
	"github.com/paylanka/paylanka/internal/payment/adapters"
	"github.com/paylanka/paylanka/internal/payment/adapters/payhere"
	"github.com/paylanka/paylanka/internal/payment/adapters/stripe"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
	"github.com/paylanka/paylanka/internal/payment/repository"
	paymentservice "github.com/paylanka/paylanka/internal/payment/service"
	"github.com/paylanka/paylanka/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) (*payhere.Adapter, error) {
		return payhere.New(cfg.PayHere.MerchantID, cfg.PayHere.MerchantSecret)
	}),
	fx.Provide(func(cfg config.Config, payhereAdapter *payhere.Adapter) (*adapters.Registry, error) {
		stripeAdapter, err := stripe.New(cfg.Stripe.WebhookSecret)
		if err != nil {
			return nil, err
		}
		return adapters.NewRegistry(stripeAdapter, payhereAdapter), nil
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(func(svc *paymentservice.Service) paymentdomain.Service { return svc }),
	fx.Provide(webhook.NewService),
)
