package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paylanka/paylanka/internal/payrollrates/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payrollrates.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	if req.EffectiveFrom.IsZero() {
		return nil, domain.ErrInvalidEffectiveFrom
	}
	if err := validateRates(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &domain.RateTable{
		ID:                  s.genID.Generate().Int64(),
		EffectiveFrom:       req.EffectiveFrom.UTC(),
		TaxFreeMonthlyLimit: req.TaxFreeMonthlyLimit,
		Slab1Limit:          req.Slab1Limit,
		Slab1Rate:           req.Slab1Rate,
		Slab2Limit:          req.Slab2Limit,
		Slab2Rate:           req.Slab2Rate,
		Slab3Limit:          req.Slab3Limit,
		Slab3Rate:           req.Slab3Rate,
		Slab4Limit:          req.Slab4Limit,
		Slab4Rate:           req.Slab4Rate,
		Slab5Rate:           req.Slab5Rate,
		EmployeeEPFRate:     req.EmployeeEPFRate,
		EmployerEPFRate:     req.EmployerEPFRate,
		ETFRate:             req.ETFRate,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	// A new table supersedes the current one. Both writes share a
	// transaction so there is never a moment with zero active tables.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeactivateAll(ctx, tx, now); err != nil {
			return err
		}
		return s.repo.Create(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("rate table created",
		zap.Int64("rate_table_id", t.ID),
		zap.Time("effective_from", t.EffectiveFrom),
	)

	resp := s.toResponse(t)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	tableID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tableID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	applyInt64 := func(dst *int64, src *int64) {
		if src != nil {
			*dst = *src
		}
	}
	applyFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	applyInt64(&item.TaxFreeMonthlyLimit, req.TaxFreeMonthlyLimit)
	applyInt64(&item.Slab1Limit, req.Slab1Limit)
	applyFloat(&item.Slab1Rate, req.Slab1Rate)
	applyInt64(&item.Slab2Limit, req.Slab2Limit)
	applyFloat(&item.Slab2Rate, req.Slab2Rate)
	applyInt64(&item.Slab3Limit, req.Slab3Limit)
	applyFloat(&item.Slab3Rate, req.Slab3Rate)
	applyInt64(&item.Slab4Limit, req.Slab4Limit)
	applyFloat(&item.Slab4Rate, req.Slab4Rate)
	applyFloat(&item.Slab5Rate, req.Slab5Rate)
	applyFloat(&item.EmployeeEPFRate, req.EmployeeEPFRate)
	applyFloat(&item.EmployerEPFRate, req.EmployerEPFRate)
	applyFloat(&item.ETFRate, req.ETFRate)

	if item.TaxFreeMonthlyLimit < 0 || item.Slab1Limit <= 0 {
		return nil, domain.ErrInvalidRates
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	items, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) GetActive(ctx context.Context) (*domain.Response, error) {
	item, err := s.repo.FindActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNoActiveTable
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) GetForDate(ctx context.Context, date time.Time) (*domain.RateTable, error) {
	item, err := s.repo.FindForDate(ctx, s.db, date.UTC())
	if err != nil {
		return nil, err
	}
	if item != nil {
		return item, nil
	}

	item, err = s.repo.FindActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNoActiveTable
	}
	return item, nil
}

func validateRates(req domain.CreateRequest) error {
	if req.TaxFreeMonthlyLimit < 0 {
		return domain.ErrInvalidRates
	}
	if req.Slab1Limit <= 0 || req.Slab2Limit <= 0 || req.Slab3Limit <= 0 || req.Slab4Limit <= 0 {
		return domain.ErrInvalidRates
	}
	for _, rate := range []float64{
		req.Slab1Rate, req.Slab2Rate, req.Slab3Rate, req.Slab4Rate, req.Slab5Rate,
		req.EmployeeEPFRate, req.EmployerEPFRate, req.ETFRate,
	} {
		if rate < 0 || rate > 100 {
			return domain.ErrInvalidRates
		}
	}
	return nil
}

func (s *Service) toResponse(t *domain.RateTable) domain.Response {
	return domain.Response{
		ID:                  snowflake.ID(t.ID).String(),
		EffectiveFrom:       t.EffectiveFrom,
		TaxFreeMonthlyLimit: t.TaxFreeMonthlyLimit,
		Slab1Limit:          t.Slab1Limit,
		Slab1Rate:           t.Slab1Rate,
		Slab2Limit:          t.Slab2Limit,
		Slab2Rate:           t.Slab2Rate,
		Slab3Limit:          t.Slab3Limit,
		Slab3Rate:           t.Slab3Rate,
		Slab4Limit:          t.Slab4Limit,
		Slab4Rate:           t.Slab4Rate,
		Slab5Rate:           t.Slab5Rate,
		EmployeeEPFRate:     t.EmployeeEPFRate,
		EmployerEPFRate:     t.EmployerEPFRate,
		ETFRate:             t.ETFRate,
		IsActive:            t.IsActive,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}
