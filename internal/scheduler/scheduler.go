package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paylanka/paylanka/internal/clock"
	appconfig "github.com/paylanka/paylanka/internal/config"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
	obsmetrics "github.com/paylanka/paylanka/internal/observability/metrics"
	subscriptiondomain "github.com/paylanka/paylanka/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Cfg             appconfig.Config
	GenID           *snowflake.Node
	Clock           clock.Clock
	InvoiceSvc      invoicedomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Config          Config `optional:"true"`
}

type Scheduler struct {
	db              *gorm.DB
	log             *zap.Logger
	cfg             Config
	appCfg          appconfig.Config
	genID           *snowflake.Node
	clock           clock.Clock
	invoiceSvc      invoicedomain.Service
	subscriptionSvc subscriptiondomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.InvoiceSvc == nil || p.SubscriptionSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:              p.DB,
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		appCfg:          p.Cfg,
		genID:           p.GenID,
		clock:           p.Clock,
		invoiceSvc:      p.InvoiceSvc,
		subscriptionSvc: p.SubscriptionSvc,
	}, nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, "monthly_invoices", s.MonthlyInvoicesJob))
	err = errors.Join(err, s.runJob(parent, "expire_subscriptions", s.ExpireSubscriptionsJob))
	return err
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	obsmetrics.SchedulerJobRuns.WithLabelValues(name).Inc()
	start := s.clock.Now()
	err := fn(ctx)
	if err != nil {
		obsmetrics.SchedulerJobErrors.WithLabelValues(name).Inc()
		s.log.Warn("job failed",
			zap.String("job", name),
			zap.Duration("elapsed", s.clock.Now().Sub(start)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// MonthlyInvoicesJob issues the current month's invoice for every ACTIVE
// subscription that does not have one yet.
func (s *Scheduler) MonthlyInvoicesJob(ctx context.Context) error {
	billingMonth := s.clock.Now().Format("2006-01")

	for {
		batch, err := s.fetchSubscriptionsForBilling(ctx, billingMonth, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for _, sub := range batch {
			_, err := s.invoiceSvc.GenerateMonthlyInvoice(ctx, invoicedomain.MonthlyInvoiceRequest{
				UserID:         sub.UserID,
				SubscriptionID: sub.ID,
				PlanID:         sub.PlanID,
				PricePerUnit:   sub.EmployeePrice,
				Currency:       s.appCfg.DefaultCurrency,
				BillingMonth:   billingMonth,
			})
			if err != nil {
				s.log.Warn("monthly invoice generation failed",
					zap.Int64("subscription_id", sub.ID),
					zap.String("billing_month", billingMonth),
					zap.Error(err),
				)
				continue
			}
			obsmetrics.MonthlyInvoicesIssued.Inc()
		}

		if len(batch) < s.cfg.BatchSize {
			return nil
		}
	}
}

// ExpireSubscriptionsJob moves ACTIVE subscriptions past their end date to
// EXPIRED.
func (s *Scheduler) ExpireSubscriptionsJob(ctx context.Context) error {
	expired, err := s.subscriptionSvc.ExpireDue(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		obsmetrics.SubscriptionsExpired.Add(float64(expired))
		s.log.Info("subscriptions expired", zap.Int("count", expired))
	}
	return nil
}
