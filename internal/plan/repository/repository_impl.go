package repository

import (
	"context"

	"github.com/paylanka/paylanka/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plans (id, name, description, employee_price, registration_fee, max_employees, max_companies, features, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.EmployeePrice,
		plan.RegistrationFee,
		plan.MaxEmployees,
		plan.MaxCompanies,
		plan.Features,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	if plan == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE plans
		 SET description = ?, employee_price = ?, registration_fee = ?, max_employees = ?, max_companies = ?, features = ?, updated_at = ?
		 WHERE id = ?`,
		plan.Description,
		plan.EmployeePrice,
		plan.RegistrationFee,
		plan.MaxEmployees,
		plan.MaxCompanies,
		plan.Features,
		plan.UpdatedAt,
		plan.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Plan, error) {
	var p domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, employee_price, registration_fee, max_employees, max_companies, features, created_at, updated_at
		 FROM plans WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Plan, error) {
	var p domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, employee_price, registration_fee, max_employees, max_companies, features, created_at, updated_at
		 FROM plans WHERE name = ?`,
		name,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.Plan, error) {
	var items []domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, employee_price, registration_fee, max_employees, max_companies, features, created_at, updated_at
		 FROM plans ORDER BY employee_price ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
