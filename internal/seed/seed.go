package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/paylanka/paylanka/internal/payrollrates/domain"
	plandomain "github.com/paylanka/paylanka/internal/plan/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnsureDefaults seeds the catalog a fresh deployment needs before it can
// bill anyone: the three subscription plans and the statutory rate table
// effective 2025-04-01. Existing rows are left untouched, so re-running on
// startup is safe.
func EnsureDefaults(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePlans(ctx, tx, node); err != nil {
			return err
		}
		return ensureRateTable(ctx, tx, node)
	})
}

func ensurePlans(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	// Amounts in cents.
	plans := []plandomain.Plan{
		{
			Name:            "Basic",
			EmployeePrice:   10000,
			RegistrationFee: 250000,
			MaxEmployees:    30,
			MaxCompanies:    2,
			Features: datatypes.JSONMap{
				"canExportData":  false,
				"canViewReports": false,
			},
		},
		{
			Name:            "Professional",
			EmployeePrice:   17500,
			RegistrationFee: 500000,
			MaxEmployees:    99,
			MaxCompanies:    3,
			Features: datatypes.JSONMap{
				"canExportData":   true,
				"canViewReports":  true,
				"prioritySupport": false,
			},
		},
		{
			Name:            "Enterprise",
			EmployeePrice:   20000,
			RegistrationFee: 750000,
			MaxEmployees:    100,
			MaxCompanies:    10,
			Features: datatypes.JSONMap{
				"canExportData":   true,
				"canViewReports":  true,
				"customBranding":  true,
				"prioritySupport": true,
			},
		},
	}

	now := time.Now().UTC()
	for _, plan := range plans {
		var existing plandomain.Plan
		err := tx.WithContext(ctx).Where("name = ?", plan.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		plan.ID = node.Generate().Int64()
		plan.CreatedAt = now
		plan.UpdatedAt = now
		if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureRateTable(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var existing ratedomain.RateTable
	err := tx.WithContext(ctx).Where("is_active = ?", true).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	// Sri Lanka PAYE tables effective 2025-04-01. Limits in cents, rates in
	// percent.
	table := ratedomain.RateTable{
		ID:                  node.Generate().Int64(),
		EffectiveFrom:       time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		TaxFreeMonthlyLimit: 15000000,
		Slab1Limit:          8333300,
		Slab1Rate:           6,
		Slab2Limit:          4166700,
		Slab2Rate:           18,
		Slab3Limit:          4166700,
		Slab3Rate:           24,
		Slab4Limit:          4166700,
		Slab4Rate:           30,
		Slab5Rate:           36,
		EmployeeEPFRate:     8,
		EmployerEPFRate:     12,
		ETFRate:             3,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	return tx.WithContext(ctx).Create(&table).Error
}
