package adapter

import (
	"tbetl/internal/config"
	"tbetl/internal/transformer/builtin"
)

// OWIDIndicators are the Our World in Data measurement columns the job knows
// by name. Other numeric columns are picked up by inference.
var OWIDIndicators = []string{
	"tb_incidence",
	"tuberculosis_deaths",
	"tuberculosis_incidence_rate",
	"tuberculous_mortality_rate",
	"population",
}

// OWID returns the adapter for the multi-year OWID export. Measurements are
// a time series, so every numeric measurement column is forward-filled within
// its country. Rates are not bounded, so nothing is clipped.
func OWID(cfg config.Cleaning, opts ...Option) *Adapter {
	a := newAdapter("owid", cfg, opts)
	a.chain = a.stages(
		nil,
		OWIDIndicators,
		OWIDIndicators,
		builtin.Missing{Default: builtin.ForwardFill{}},
		nil,
	)
	return a
}
