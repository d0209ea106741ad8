// Package adapter configures the cleaning chain for each public TB export.
//
// An Adapter only chooses parameters: which headers to alias, which columns
// are measurements, which missing-value rule applies and which columns are
// clipped. All cleaning logic lives in the builtin stages it composes. Every
// adapter runs the stages in the same order:
//
//	normalize_columns -> rename -> coerce -> require -> year_range ->
//	drop_duplicates -> handle_missing -> [drop_all_missing] ->
//	[clip_range] -> flag_outliers
package adapter

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tbetl/internal/config"
	"tbetl/internal/logging"
	"tbetl/internal/metrics"
	"tbetl/internal/report"
	"tbetl/internal/table"
	"tbetl/internal/transformer"
	"tbetl/internal/transformer/builtin"
)

// Header aliases shared by both exports, applied after normalization.
var commonAliases = map[string]string{
	"entity": "country",
	"estimated_incidence_of_all_forms_of_tuberculosis": "tb_incidence",
}

// Identifier columns that look numeric but are not measurements.
var identifiers = []string{"country", "code", "iso2", "iso3", "iso_numeric", "g_whoregion"}

// Adapter is a source-specific cleaning configuration.
type Adapter struct {
	name  string
	cfg   config.Cleaning
	chain transformer.Chain
	log   *slog.Logger
	job   string
	now   func() time.Time
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger for step records. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// WithJob sets the job label used for metrics.
func WithJob(job string) Option { return func(a *Adapter) { a.job = job } }

// Result is the outcome of cleaning one raw table.
type Result struct {
	// Table is the cleaned table.
	Table *table.Table
	// Steps holds per-stage statistics in execution order.
	Steps []transformer.Stats
	// Outliers maps a measurement column to flagged row positions in Table.
	Outliers map[string][]int
	// Report summarizes Table.
	Report report.Validation
}

func newAdapter(name string, cfg config.Cleaning, opts []Option) *Adapter {
	a := &Adapter{name: name, cfg: cfg, log: logging.Discard(), job: "tbetl", now: time.Now}
	for _, o := range opts {
		o(a)
	}
	a.log = a.log.With("source", name)
	return a
}

// Name identifies the source ("owid" or "who").
func (a *Adapter) Name() string { return a.name }

// Chain returns the configured stages.
func (a *Adapter) Chain() transformer.Chain { return append(transformer.Chain(nil), a.chain...) }

// Clean runs the chain over raw. A failing stage aborts this source only;
// the error names the source and wraps the stage's *table.SchemaError or
// *table.ConfigError.
func (a *Adapter) Clean(raw *table.Table) (*Result, error) {
	started := a.now()
	res := &Result{Outliers: map[string][]int{}}

	a.log.Info("cleaning started", "rows", raw.Len(), "columns", raw.Width())
	metrics.RecordRows(a.job, a.name, metrics.RowsLoaded, raw.Len())

	out, steps, err := a.chain.Run(raw, func(st transformer.Stats, err error) {
		a.observe(st, err)
		for col, rows := range st.Flagged {
			res.Outliers[col] = rows
		}
	})
	res.Steps = steps
	metrics.RecordSource(a.job, a.name, err)
	if err != nil {
		a.log.Error("cleaning failed", "error", err)
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}

	res.Table = out
	res.Report = report.Build(a.name, out, res.Outliers)
	metrics.RecordRows(a.job, a.name, metrics.RowsCleaned, out.Len())
	metrics.RecordRows(a.job, a.name, metrics.RowsOutliers, len(res.Report.OutlierRows))
	a.log.Info("cleaning complete",
		"rows", out.Len(),
		"dropped", raw.Len()-out.Len(),
		"elapsed", a.now().Sub(started).Truncate(time.Millisecond),
	)
	return res, nil
}

func (a *Adapter) observe(st transformer.Stats, err error) {
	metrics.RecordStep(a.job, a.name, st.Step, err, st.Duration)
	if err != nil {
		a.log.Warn("step failed", "step", st.Step, "rows_in", st.RowsIn, "error", err)
		return
	}
	metrics.RecordRows(a.job, a.name, metrics.RowsDropped, st.Dropped())
	metrics.RecordRows(a.job, a.name, metrics.RowsInvalid, st.Invalid)
	switch st.Step {
	case "handle_missing":
		metrics.RecordRows(a.job, a.name, metrics.RowsFilled, st.Changed)
	case "clip_range":
		metrics.RecordRows(a.job, a.name, metrics.RowsClipped, st.Changed)
	}
	a.log.Debug("step done",
		"step", st.Step,
		"rows_in", st.RowsIn,
		"rows_out", st.RowsOut,
		"changed", st.Changed,
		"invalid", st.Invalid,
		"duration", st.Duration,
	)
}

// isMeasurement selects numeric columns that carry indicator values.
func isMeasurement(name string) bool {
	if name == "year" {
		return false
	}
	for _, id := range identifiers {
		if name == id {
			return false
		}
	}
	return true
}

// IsPercentage reports whether a canonical WHO column holds a percentage.
func IsPercentage(name string) bool {
	for _, marker := range []string{"success_rate", "coverage", "pct", "percent"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// stages assembles the shared order around source-specific pieces.
func (a *Adapter) stages(aliases map[string]string, floats, indicators []string, missing builtin.Missing, clip transformer.Transformer) transformer.Chain {
	rename := make(map[string]string, len(commonAliases)+len(aliases))
	for k, v := range commonAliases {
		rename[k] = v
	}
	for k, v := range aliases {
		rename[k] = v
	}

	chain := transformer.Chain{
		builtin.Normalize{},
		builtin.Rename{Map: rename},
		builtin.Coerce{Int: []string{"year"}, Float: floats, Infer: true, Skip: identifiers},
		builtin.Require{Fields: []string{"country"}},
		builtin.YearRange{Min: a.cfg.MinYear, Max: a.cfg.MaxYear},
		builtin.DeDup{Keys: builtin.DefaultKeys, Policy: a.cfg.DedupPolicy},
		missing,
	}
	if a.cfg.DropEmptyIndicatorRows {
		chain = append(chain, builtin.DropAllMissing{Columns: indicators})
	}
	if clip != nil {
		chain = append(chain, clip)
	}
	return append(chain, builtin.Outliers{Match: isMeasurement, Z: a.cfg.OutlierZ})
}
