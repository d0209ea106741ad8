package adapter

import (
	"tbetl/internal/config"
	"tbetl/internal/transformer/builtin"
)

// WHOIndicators are the WHO program indicators the job knows by name.
var WHOIndicators = []string{
	"tb_cases_notified",
	"tb_treatment_success_rate",
	"tb_treatment_coverage",
	"tb_cases_detected",
	"tb_cases_with_drug_susceptibility_test",
}

// WHO returns the adapter for the WHO program export. Rows without a year
// are dropped, since single-year data cannot be filled, and percentage
// columns are clamped to the configured range.
func WHO(cfg config.Cleaning, opts ...Option) *Adapter {
	a := newAdapter("who", cfg, opts)
	a.chain = a.stages(
		nil,
		WHOIndicators,
		WHOIndicators,
		builtin.Missing{Rules: builtin.Rules{"year": builtin.DropRow{}}, Default: builtin.Leave{}},
		builtin.Clip{Match: IsPercentage, Low: cfg.PercentLow, High: cfg.PercentHigh},
	)
	return a
}
