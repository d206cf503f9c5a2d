package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paylanka/paylanka/internal/clock"
	"github.com/paylanka/paylanka/internal/events"
	"github.com/paylanka/paylanka/internal/invoice/domain"
	"github.com/paylanka/paylanka/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Publisher events.Publisher
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	publisher events.Publisher
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		publisher: p.Publisher,
	}
}

func (s *Service) CreateRegistrationInvoice(ctx context.Context, tx *gorm.DB, req domain.RegistrationInvoiceRequest) (*domain.Invoice, error) {
	if req.Amount < 0 {
		return nil, domain.ErrInvalidAmount
	}

	existing, err := s.repo.FindRegistration(ctx, tx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if existing != nil {
		if existing.Status == domain.StatusPaid {
			return nil, domain.ErrAlreadyPaid
		}
		// Plan was re-selected before payment: reprice the unpaid invoice
		// instead of stacking a second one.
		existing.PlanID = req.PlanID
		existing.RegistrationFee = req.Amount
		existing.TotalAmount = req.Amount
		existing.Status = domain.StatusPending
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	inv := &domain.Invoice{
		ID:              s.genID.Generate().Int64(),
		UserID:          req.UserID,
		SubscriptionID:  req.SubscriptionID,
		PlanID:          req.PlanID,
		BillingType:     domain.BillingTypeRegistration,
		RegistrationFee: req.Amount,
		TotalAmount:     req.Amount,
		Currency:        req.Currency,
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, tx, inv); err != nil {
		return nil, err
	}

	s.log.Info("registration invoice issued",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("subscription_id", inv.SubscriptionID),
		zap.Int64("amount", inv.TotalAmount),
	)
	return inv, nil
}

func (s *Service) GenerateMonthlyInvoice(ctx context.Context, req domain.MonthlyInvoiceRequest) (*domain.Invoice, error) {
	if _, err := time.Parse("2006-01", req.BillingMonth); err != nil {
		return nil, domain.ErrInvalidBillingMonth
	}

	existing, err := s.repo.FindMonthly(ctx, s.db, req.SubscriptionID, req.BillingMonth)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	employeeCount, err := s.repo.CountActiveEmployees(ctx, s.db, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	inv := &domain.Invoice{
		ID:             s.genID.Generate().Int64(),
		UserID:         req.UserID,
		SubscriptionID: req.SubscriptionID,
		PlanID:         req.PlanID,
		BillingType:    domain.BillingTypeMonthly,
		BillingMonth:   req.BillingMonth,
		EmployeeCount:  employeeCount,
		PricePerUnit:   req.PricePerUnit,
		TotalAmount:    int64(employeeCount) * req.PricePerUnit,
		Currency:       req.Currency,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, inv); err != nil {
			return err
		}
		payload, err := json.Marshal(map[string]any{
			"invoice_id":      snowflake.ID(inv.ID).String(),
			"subscription_id": snowflake.ID(inv.SubscriptionID).String(),
			"billing_month":   inv.BillingMonth,
			"employee_count":  inv.EmployeeCount,
			"total_amount":    inv.TotalAmount,
		})
		if err != nil {
			return err
		}
		return s.publisher.PublishTx(tx, events.MonthlyInvoiceIssuedTopic, payload)
	})
	if err != nil {
		// A scheduler replica won the race for the same month.
		if db.IsDuplicateKeyErr(err) {
			return s.repo.FindMonthly(ctx, s.db, req.SubscriptionID, req.BillingMonth)
		}
		return nil, err
	}

	s.log.Info("monthly invoice issued",
		zap.Int64("invoice_id", inv.ID),
		zap.String("billing_month", inv.BillingMonth),
		zap.Int("employee_count", inv.EmployeeCount),
		zap.Int64("total_amount", inv.TotalAmount),
	)
	return inv, nil
}

func (s *Service) MarkPaid(ctx context.Context, tx *gorm.DB, invoiceID, paymentIntentID int64, paidAt time.Time) (*domain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.Status == domain.StatusPaid {
		return nil, domain.ErrAlreadyPaid
	}

	paidAtUTC := paidAt.UTC()
	inv.Status = domain.StatusPaid
	inv.PaidAt = &paidAtUTC
	inv.PaymentIntentID = &paymentIntentID
	inv.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, tx, inv); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]any{
		"invoice_id":   snowflake.ID(inv.ID).String(),
		"user_id":      snowflake.ID(inv.UserID).String(),
		"billing_type": string(inv.BillingType),
		"total_amount": inv.TotalAmount,
	})
	if err != nil {
		return nil, err
	}
	if err := s.publisher.PublishTx(tx, events.InvoicePaidTopic, payload); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) MarkFailed(ctx context.Context, tx *gorm.DB, invoiceID int64) (*domain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.Status == domain.StatusPaid {
		return nil, domain.ErrAlreadyPaid
	}

	inv.Status = domain.StatusFailed
	inv.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, tx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	inv, err := s.repo.FindByID(ctx, s.db, invoiceID.Int64())
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(inv)
	return &resp, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Response, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	items, err := s.repo.FindByUser(ctx, s.db, parsed.Int64())
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(&item))
	}
	return resp, nil
}

func toResponse(inv *domain.Invoice) domain.Response {
	return domain.Response{
		ID:              snowflake.ID(inv.ID).String(),
		UserID:          snowflake.ID(inv.UserID).String(),
		SubscriptionID:  snowflake.ID(inv.SubscriptionID).String(),
		PlanID:          snowflake.ID(inv.PlanID).String(),
		BillingType:     string(inv.BillingType),
		BillingMonth:    inv.BillingMonth,
		EmployeeCount:   inv.EmployeeCount,
		PricePerUnit:    inv.PricePerUnit,
		RegistrationFee: inv.RegistrationFee,
		TotalAmount:     inv.TotalAmount,
		Currency:        inv.Currency,
		Status:          string(inv.Status),
		PaidAt:          inv.PaidAt,
		CreatedAt:       inv.CreatedAt,
	}
}
