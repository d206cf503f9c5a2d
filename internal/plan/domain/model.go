package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Plan prices are stored in cents. EmployeePrice is the monthly charge per
// active employee; RegistrationFee is the one-off charge collected before
// activation.
type Plan struct {
	ID              int64             `json:"id" gorm:"primaryKey"`
	Name            string            `json:"name" gorm:"type:text;not null;uniqueIndex"`
	Description     string            `json:"description" gorm:"type:text;not null;default:''"`
	EmployeePrice   int64             `json:"employee_price" gorm:"not null"`
	RegistrationFee int64             `json:"registration_fee" gorm:"not null"`
	MaxEmployees    int               `json:"max_employees" gorm:"not null"`
	MaxCompanies    int               `json:"max_companies" gorm:"not null"`
	Features        datatypes.JSONMap `json:"features,omitempty" gorm:"type:jsonb"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Plan) TableName() string { return "plans" }

// HasFeature reports whether the plan enables the named feature flag.
func (p *Plan) HasFeature(name string) bool {
	if p == nil || len(p.Features) == 0 {
		return false
	}
	v, ok := p.Features[name]
	if !ok {
		return false
	}
	enabled, ok := v.(bool)
	return ok && enabled
}
