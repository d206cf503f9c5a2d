package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paylanka/paylanka/internal/clock"
	"github.com/paylanka/paylanka/internal/config"
	"github.com/paylanka/paylanka/internal/events"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
	plandomain "github.com/paylanka/paylanka/internal/plan/domain"
	"github.com/paylanka/paylanka/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg       config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	PlanRepo  plandomain.Repository
	Invoices  invoicedomain.Service
	Publisher events.Publisher
}

type Service struct {
	cfg       config.Config
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	planRepo  plandomain.Repository
	invoices  invoicedomain.Service
	publisher events.Publisher
}

func New(p Params) domain.Service {
	return &Service{
		cfg:       p.Cfg,
		db:        p.DB,
		log:       p.Log.Named("subscription.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		planRepo:  p.PlanRepo,
		invoices:  p.Invoices,
		publisher: p.Publisher,
	}
}

type userRow struct {
	ID              int64
	IsEmailVerified bool
	IsPasswordSet   bool
}

func (s *Service) findUser(ctx context.Context, db *gorm.DB, userID int64) (*userRow, error) {
	var u userRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, is_email_verified, is_password_set FROM users WHERE id = ?`,
		userID,
	).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, nil
	}
	return &u, nil
}

func (s *Service) SelectPlan(ctx context.Context, req domain.SelectPlanRequest) (*domain.SelectPlanResponse, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	planID, err := parseID(req.PlanID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	user, err := s.findUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if !user.IsEmailVerified {
		return nil, domain.ErrEmailNotVerified
	}
	if !user.IsPasswordSet {
		return nil, domain.ErrPasswordNotSet
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	active, err := s.repo.FindByUserAndStatus(ctx, s.db, userID, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, domain.ErrActiveExists
	}

	now := s.clock.Now()
	var (
		sub *domain.Subscription
		inv *invoicedomain.Invoice
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pending, err := s.repo.FindByUserAndStatus(ctx, tx, userID, domain.StatusPendingActivation)
		if err != nil {
			return err
		}

		if pending != nil {
			// Switching plans before first payment rewrites the pending
			// subscription rather than creating a second one.
			pending.PlanID = plan.ID
			pending.SelectedAt = now
			pending.UpdatedAt = now
			if err := s.repo.Update(ctx, tx, pending); err != nil {
				return err
			}
			sub = pending
		} else {
			sub = &domain.Subscription{
				ID:         s.genID.Generate().Int64(),
				UserID:     userID,
				PlanID:     plan.ID,
				Status:     domain.StatusPendingActivation,
				SelectedAt: now,
				StartDate:  now,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.repo.Create(ctx, tx, sub); err != nil {
				return err
			}
		}

		inv, err = s.invoices.CreateRegistrationInvoice(ctx, tx, invoicedomain.RegistrationInvoiceRequest{
			UserID:         userID,
			SubscriptionID: sub.ID,
			PlanID:         plan.ID,
			Amount:         plan.RegistrationFee,
			Currency:       s.cfg.DefaultCurrency,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan selected",
		zap.Int64("user_id", userID),
		zap.Int64("plan_id", plan.ID),
		zap.Int64("subscription_id", sub.ID),
	)

	return &domain.SelectPlanResponse{
		Subscription: toResponse(sub),
		InvoiceID:    snowflake.ID(inv.ID).String(),
		AmountDue:    inv.TotalAmount,
		Currency:     inv.Currency,
	}, nil
}

func (s *Service) ChangePlan(ctx context.Context, req domain.ChangePlanRequest) (*domain.Response, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	planID, err := parseID(req.PlanID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	current, err := s.repo.FindByUserAndStatus(ctx, s.db, userID, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNoActiveSubscription
	}
	if current.PlanID == plan.ID {
		return nil, domain.ErrSamePlan
	}

	now := s.clock.Now()
	replacement := &domain.Subscription{
		ID:          s.genID.Generate().Int64(),
		UserID:      userID,
		PlanID:      plan.ID,
		Status:      domain.StatusActive,
		SelectedAt:  now,
		StartDate:   now,
		ActivatedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current.Status = domain.StatusCancelled
		current.EndDate = &now
		current.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, tx, replacement); err != nil {
			return err
		}

		// Purchased addons survive a plan change.
		addons, err := s.repo.FindAddons(ctx, tx, current.ID)
		if err != nil {
			return err
		}
		for _, addon := range addons {
			clone := &domain.Addon{
				ID:             s.genID.Generate().Int64(),
				SubscriptionID: replacement.ID,
				Type:           addon.Type,
				Value:          addon.Value,
				CreatedAt:      now,
			}
			if err := s.repo.CreateAddon(ctx, tx, clone); err != nil {
				return err
			}
		}

		return s.publishActivated(tx, replacement)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan changed",
		zap.Int64("user_id", userID),
		zap.Int64("from_subscription_id", current.ID),
		zap.Int64("to_subscription_id", replacement.ID),
	)

	resp := toResponse(replacement)
	return &resp, nil
}

func (s *Service) Activate(ctx context.Context, id string) (*domain.Response, error) {
	subID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var activated *domain.Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		activated, err = s.ActivateOnPayment(ctx, tx, subID, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := toResponse(activated)
	return &resp, nil
}

func (s *Service) ActivateOnPayment(ctx context.Context, tx *gorm.DB, subscriptionID int64, now time.Time) (*domain.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, tx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNotFound
	}
	if sub.Status == domain.StatusActive {
		return sub, nil
	}
	if !domain.IsTransitionAllowed(sub.Status, domain.StatusActive) {
		return nil, domain.ErrInvalidTransition
	}

	sub.Status = domain.StatusActive
	sub.StartDate = now
	sub.ActivatedAt = &now
	sub.UpdatedAt = now
	if err := s.repo.Update(ctx, tx, sub); err != nil {
		return nil, err
	}

	// The partial unique index on (user_id) WHERE status = 'ACTIVE' rejects
	// a second active row, so any survivor from a racing activation is
	// cancelled before this update commits.
	if err := s.repo.CancelActiveExcept(ctx, tx, sub.UserID, sub.ID, now); err != nil {
		return nil, err
	}

	if err := s.publishActivated(tx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) Cancel(ctx context.Context, userID string) (*domain.Response, error) {
	parsed, err := parseID(userID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	sub, err := s.repo.FindByUserAndStatus(ctx, s.db, parsed, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub, err = s.repo.FindByUserAndStatus(ctx, s.db, parsed, domain.StatusPendingActivation)
		if err != nil {
			return nil, err
		}
	}
	if sub == nil {
		return nil, domain.ErrNoActiveSubscription
	}
	if !domain.IsTransitionAllowed(sub.Status, domain.StatusCancelled) {
		return nil, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	sub.Status = domain.StatusCancelled
	sub.EndDate = &now
	sub.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, sub); err != nil {
			return err
		}
		payload, err := json.Marshal(map[string]any{
			"subscription_id": snowflake.ID(sub.ID).String(),
			"user_id":         snowflake.ID(sub.UserID).String(),
		})
		if err != nil {
			return err
		}
		return s.publisher.PublishTx(tx, events.SubscriptionCancelledTopic, payload)
	})
	if err != nil {
		return nil, err
	}

	resp := toResponse(sub)
	return &resp, nil
}

func (s *Service) AddAddon(ctx context.Context, req domain.AddAddonRequest) (*domain.AddonResponse, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	addonType := domain.AddonType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if addonType != domain.AddonTypeExtraEmployees && addonType != domain.AddonTypeExtraCompanies {
		return nil, domain.ErrInvalidAddonType
	}
	if req.Value <= 0 {
		return nil, domain.ErrInvalidAddonValue
	}

	sub, err := s.repo.FindByUserAndStatus(ctx, s.db, userID, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNoActiveSubscription
	}

	addon := &domain.Addon{
		ID:             s.genID.Generate().Int64(),
		SubscriptionID: sub.ID,
		Type:           addonType,
		Value:          req.Value,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.repo.CreateAddon(ctx, s.db, addon); err != nil {
		return nil, err
	}

	s.log.Info("addon added",
		zap.Int64("subscription_id", sub.ID),
		zap.String("type", string(addonType)),
		zap.Int("value", req.Value),
	)

	return &domain.AddonResponse{
		ID:             snowflake.ID(addon.ID).String(),
		SubscriptionID: snowflake.ID(addon.SubscriptionID).String(),
		Type:           string(addon.Type),
		Value:          addon.Value,
		CreatedAt:      addon.CreatedAt,
	}, nil
}

func (s *Service) GetCurrent(ctx context.Context, userID string) (*domain.CurrentResponse, error) {
	parsed, err := parseID(userID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	sub, err := s.repo.FindByUserAndStatus(ctx, s.db, parsed, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub, err = s.repo.FindByUserAndStatus(ctx, s.db, parsed, domain.StatusPendingActivation)
		if err != nil {
			return nil, err
		}
	}
	if sub == nil {
		return nil, domain.ErrNotFound
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	addons, err := s.repo.FindAddons(ctx, s.db, sub.ID)
	if err != nil {
		return nil, err
	}

	maxEmployees := plan.MaxEmployees
	maxCompanies := plan.MaxCompanies
	addonResponses := make([]domain.AddonResponse, 0, len(addons))
	for _, addon := range addons {
		switch addon.Type {
		case domain.AddonTypeExtraEmployees:
			maxEmployees += addon.Value
		case domain.AddonTypeExtraCompanies:
			maxCompanies += addon.Value
		}
		addonResponses = append(addonResponses, domain.AddonResponse{
			ID:             snowflake.ID(addon.ID).String(),
			SubscriptionID: snowflake.ID(addon.SubscriptionID).String(),
			Type:           string(addon.Type),
			Value:          addon.Value,
			CreatedAt:      addon.CreatedAt,
		})
	}

	var employeeCount, companyCount int
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(e.id) FROM employees e
		 JOIN companies c ON c.id = e.company_id
		 WHERE c.owner_id = ? AND e.status = 'ACTIVE'`,
		parsed,
	).Scan(&employeeCount).Error
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(id) FROM companies WHERE owner_id = ?`,
		parsed,
	).Scan(&companyCount).Error
	if err != nil {
		return nil, err
	}

	return &domain.CurrentResponse{
		Subscription: toResponse(sub),
		Plan: domain.PlanSummary{
			ID:              snowflake.ID(plan.ID).String(),
			Name:            plan.Name,
			EmployeePrice:   plan.EmployeePrice,
			RegistrationFee: plan.RegistrationFee,
			MaxEmployees:    plan.MaxEmployees,
			MaxCompanies:    plan.MaxCompanies,
		},
		Addons:                addonResponses,
		EffectiveMaxEmployees: maxEmployees,
		EffectiveMaxCompanies: maxCompanies,
		EmployeeCount:         employeeCount,
		CompanyCount:          companyCount,
	}, nil
}

func (s *Service) RenewMonthly(ctx context.Context, userID string) (*domain.RenewResult, error) {
	parsed, err := parseID(userID)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	sub, err := s.repo.FindByUserAndStatus(ctx, s.db, parsed, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNoActiveSubscription
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	inv, err := s.invoices.GenerateMonthlyInvoice(ctx, invoicedomain.MonthlyInvoiceRequest{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		PricePerUnit:   plan.EmployeePrice,
		Currency:       s.cfg.DefaultCurrency,
		BillingMonth:   s.clock.Now().Format("2006-01"),
	})
	if err != nil {
		return nil, err
	}

	return &domain.RenewResult{
		InvoiceID:     snowflake.ID(inv.ID).String(),
		BillingMonth:  inv.BillingMonth,
		EmployeeCount: inv.EmployeeCount,
		AmountDue:     inv.TotalAmount,
		Currency:      inv.Currency,
		Status:        string(inv.Status),
	}, nil
}

func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	now := s.clock.Now()
	result := s.db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, updated_at = ?
		 WHERE status = ? AND end_date IS NOT NULL AND end_date < ?`,
		domain.StatusExpired,
		now,
		domain.StatusActive,
		now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (s *Service) publishActivated(tx *gorm.DB, sub *domain.Subscription) error {
	payload, err := json.Marshal(map[string]any{
		"subscription_id": snowflake.ID(sub.ID).String(),
		"user_id":         snowflake.ID(sub.UserID).String(),
		"plan_id":         snowflake.ID(sub.PlanID).String(),
	})
	if err != nil {
		return err
	}
	return s.publisher.PublishTx(tx, events.SubscriptionActivatedTopic, payload)
}

func toResponse(sub *domain.Subscription) domain.Response {
	return domain.Response{
		ID:          snowflake.ID(sub.ID).String(),
		UserID:      snowflake.ID(sub.UserID).String(),
		PlanID:      snowflake.ID(sub.PlanID).String(),
		Status:      string(sub.Status),
		SelectedAt:  sub.SelectedAt,
		StartDate:   sub.StartDate,
		EndDate:     sub.EndDate,
		ActivatedAt: sub.ActivatedAt,
		CreatedAt:   sub.CreatedAt,
	}
}

func parseID(value string) (int64, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return parsed.Int64(), nil
}
