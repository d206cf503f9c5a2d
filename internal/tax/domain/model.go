package domain

import "time"

// Computation is the full statutory deduction result for one gross monthly
// salary. Amounts are cents. The rate values used are snapshotted so the
// result stays explainable after the rate table changes.
type Computation struct {
	GrossSalary   int64 `json:"gross_salary"`
	TaxableIncome int64 `json:"taxable_income"`

	PAYE        int64 `json:"paye"`
	EmployeeEPF int64 `json:"employee_epf"`
	EmployerEPF int64 `json:"employer_epf"`
	ETF         int64 `json:"etf"`
	NetSalary   int64 `json:"net_salary"`

	Slabs []SlabTax `json:"slabs,omitempty"`

	RateTableID   string        `json:"rate_table_id"`
	EffectiveFrom time.Time     `json:"effective_from"`
	RatesUsed     RatesSnapshot `json:"rates_used"`
}

// SlabTax records how much of the taxable income fell into one slab and the
// tax it contributed, before final rounding.
type SlabTax struct {
	Portion int64   `json:"portion"`
	Rate    float64 `json:"rate"`
}

type RatesSnapshot struct {
	TaxFreeMonthlyLimit int64   `json:"tax_free_monthly_limit"`
	Slab1Rate           float64 `json:"slab1_rate"`
	Slab2Rate           float64 `json:"slab2_rate"`
	Slab3Rate           float64 `json:"slab3_rate"`
	Slab4Rate           float64 `json:"slab4_rate"`
	Slab5Rate           float64 `json:"slab5_rate"`
	EmployeeEPFRate     float64 `json:"employee_epf_rate"`
	EmployerEPFRate     float64 `json:"employer_epf_rate"`
	ETFRate             float64 `json:"etf_rate"`
}
