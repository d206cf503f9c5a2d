package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/paylanka/paylanka/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:   p.Log.Named("plan.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
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

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	planID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, planID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.EmployeePrice < 0 || req.RegistrationFee < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if req.MaxEmployees <= 0 || req.MaxCompanies <= 0 {
		return nil, domain.ErrInvalidLimits
	}

	existing, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateName
	}

	now := time.Now().UTC()
	p := &domain.Plan{
		ID:              s.genID.Generate().Int64(),
		Name:            name,
		Description:     strings.TrimSpace(req.Description),
		EmployeePrice:   req.EmployeePrice,
		RegistrationFee: req.RegistrationFee,
		MaxEmployees:    req.MaxEmployees,
		MaxCompanies:    req.MaxCompanies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.Features != nil {
		p.Features = datatypes.JSONMap(req.Features)
	}

	if err := s.repo.Create(ctx, s.db, p); err != nil {
		return nil, err
	}

	s.log.Info("plan created", zap.Int64("plan_id", p.ID), zap.String("name", p.Name))

	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	planID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, planID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.EmployeePrice != nil {
		if *req.EmployeePrice < 0 {
			return nil, domain.ErrInvalidPrice
		}
		item.EmployeePrice = *req.EmployeePrice
	}
	if req.RegistrationFee != nil {
		if *req.RegistrationFee < 0 {
			return nil, domain.ErrInvalidPrice
		}
		item.RegistrationFee = *req.RegistrationFee
	}
	if req.MaxEmployees != nil {
		if *req.MaxEmployees <= 0 {
			return nil, domain.ErrInvalidLimits
		}
		item.MaxEmployees = *req.MaxEmployees
	}
	if req.MaxCompanies != nil {
		if *req.MaxCompanies <= 0 {
			return nil, domain.ErrInvalidLimits
		}
		item.MaxCompanies = *req.MaxCompanies
	}
	if req.Features != nil {
		item.Features = datatypes.JSONMap(req.Features)
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) toResponse(p *domain.Plan) domain.Response {
	resp := domain.Response{
		ID:              snowflake.ID(p.ID).String(),
		Name:            p.Name,
		Description:     p.Description,
		EmployeePrice:   p.EmployeePrice,
		RegistrationFee: p.RegistrationFee,
		MaxEmployees:    p.MaxEmployees,
		MaxCompanies:    p.MaxCompanies,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if len(p.Features) > 0 {
		resp.Features = map[string]any(p.Features)
	}
	return resp
}
