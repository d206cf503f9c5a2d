package repository

import (
	"context"
	"time"

	"github.com/paylanka/paylanka/internal/payrollrates/domain"
	"gorm.io/gorm"
)

const rateColumns = `id, effective_from, tax_free_monthly_limit,
	slab1_limit, slab1_rate, slab2_limit, slab2_rate,
	slab3_limit, slab3_rate, slab4_limit, slab4_rate, slab5_rate,
	employee_epf_rate, employer_epf_rate, etf_rate,
	is_active, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, table *domain.RateTable) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payroll_rates (`+rateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		table.ID,
		table.EffectiveFrom,
		table.TaxFreeMonthlyLimit,
		table.Slab1Limit,
		table.Slab1Rate,
		table.Slab2Limit,
		table.Slab2Rate,
		table.Slab3Limit,
		table.Slab3Rate,
		table.Slab4Limit,
		table.Slab4Rate,
		table.Slab5Rate,
		table.EmployeeEPFRate,
		table.EmployerEPFRate,
		table.ETFRate,
		table.IsActive,
		table.CreatedAt,
		table.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, table *domain.RateTable) error {
	if table == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE payroll_rates
		 SET tax_free_monthly_limit = ?,
		     slab1_limit = ?, slab1_rate = ?,
		     slab2_limit = ?, slab2_rate = ?,
		     slab3_limit = ?, slab3_rate = ?,
		     slab4_limit = ?, slab4_rate = ?,
		     slab5_rate = ?,
		     employee_epf_rate = ?, employer_epf_rate = ?, etf_rate = ?,
		     updated_at = ?
		 WHERE id = ?`,
		table.TaxFreeMonthlyLimit,
		table.Slab1Limit,
		table.Slab1Rate,
		table.Slab2Limit,
		table.Slab2Rate,
		table.Slab3Limit,
		table.Slab3Rate,
		table.Slab4Limit,
		table.Slab4Rate,
		table.Slab5Rate,
		table.EmployeeEPFRate,
		table.EmployerEPFRate,
		table.ETFRate,
		table.UpdatedAt,
		table.ID,
	).Error
}

func (r *repo) DeactivateAll(ctx context.Context, db *gorm.DB, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payroll_rates SET is_active = false, updated_at = ? WHERE is_active = true`,
		now,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.RateTable, error) {
	var t domain.RateTable
	err := db.WithContext(ctx).Raw(
		`SELECT `+rateColumns+` FROM payroll_rates WHERE id = ?`,
		id,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB) (*domain.RateTable, error) {
	var t domain.RateTable
	err := db.WithContext(ctx).Raw(
		`SELECT ` + rateColumns + ` FROM payroll_rates WHERE is_active = true LIMIT 1`,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) FindForDate(ctx context.Context, db *gorm.DB, date time.Time) (*domain.RateTable, error) {
	var t domain.RateTable
	err := db.WithContext(ctx).Raw(
		`SELECT `+rateColumns+` FROM payroll_rates
		 WHERE effective_from <= ?
		 ORDER BY effective_from DESC LIMIT 1`,
		date,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.RateTable, error) {
	var items []domain.RateTable
	err := db.WithContext(ctx).Raw(
		`SELECT ` + rateColumns + ` FROM payroll_rates ORDER BY effective_from DESC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
