package domain

import "time"

// RateTable holds the statutory deduction rates for a period. Slab limits are
// monthly amounts in cents; rates are percentages. The final slab has no limit
// and absorbs the remainder of taxable income.
type RateTable struct {
	ID                  int64     `json:"id" gorm:"primaryKey"`
	EffectiveFrom       time.Time `json:"effective_from" gorm:"not null;index"`
	TaxFreeMonthlyLimit int64     `json:"tax_free_monthly_limit" gorm:"not null"`
	Slab1Limit          int64     `json:"slab1_limit" gorm:"not null"`
	Slab1Rate           float64   `json:"slab1_rate" gorm:"not null"`
	Slab2Limit          int64     `json:"slab2_limit" gorm:"not null"`
	Slab2Rate           float64   `json:"slab2_rate" gorm:"not null"`
	Slab3Limit          int64     `json:"slab3_limit" gorm:"not null"`
	Slab3Rate           float64   `json:"slab3_rate" gorm:"not null"`
	Slab4Limit          int64     `json:"slab4_limit" gorm:"not null"`
	Slab4Rate           float64   `json:"slab4_rate" gorm:"not null"`
	Slab5Rate           float64   `json:"slab5_rate" gorm:"not null"`
	EmployeeEPFRate     float64   `json:"employee_epf_rate" gorm:"column:employee_epf_rate;not null"`
	EmployerEPFRate     float64   `json:"employer_epf_rate" gorm:"column:employer_epf_rate;not null"`
	ETFRate             float64   `json:"etf_rate" gorm:"column:etf_rate;not null"`
	IsActive            bool      `json:"is_active" gorm:"not null;default:false"`
	CreatedAt           time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RateTable) TableName() string { return "payroll_rates" }
