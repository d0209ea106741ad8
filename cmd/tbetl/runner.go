package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"tbetl/internal/adapter"
	"tbetl/internal/analysis"
	"tbetl/internal/config"
	"tbetl/internal/datasource/file"
	"tbetl/internal/export"
	"tbetl/internal/metrics"
	csvparser "tbetl/internal/parser/csv"
	"tbetl/internal/report"
	"tbetl/internal/storage"
	"tbetl/internal/table"
)

// source is one input flowing through the run. err is set by the first
// failing phase; later phases skip the source. A source with no path is
// disabled and skipped without error.
type source struct {
	cfg      config.Source
	adapter  *adapter.Adapter
	disabled bool
	raw      *table.Table
	skipped  int
	res      *adapter.Result
	err      error
}

func (s *source) name() string { return s.adapter.Name() }

func (s *source) ok() bool { return s.res != nil && s.err == nil }

type runner struct {
	cfg config.Config
	log *slog.Logger
}

func newRunner(cfg config.Config, log *slog.Logger) *runner {
	return &runner{cfg: cfg, log: log}
}

// Run loads and cleans both sources, then writes every output it can. A
// failing source is logged and reported in the returned error but does not
// stop the other source.
func (r *runner) Run(ctx context.Context) error {
	opts := []adapter.Option{adapter.WithLogger(r.log), adapter.WithJob(r.cfg.Job)}
	owid := &source{cfg: r.cfg.Sources.OWID, adapter: adapter.OWID(r.cfg.Cleaning, opts...)}
	who := &source{cfg: r.cfg.Sources.WHO, adapter: adapter.WHO(r.cfg.Cleaning, opts...)}
	sources := []*source{owid, who}

	if err := r.load(ctx, sources); err != nil {
		return err
	}
	for _, s := range sources {
		r.clean(s)
	}

	var errs []error
	for _, s := range sources {
		if s.err != nil {
			errs = append(errs, s.err)
		}
	}

	var merged *table.Table
	if owid.ok() && who.ok() {
		m, err := r.merge(owid.res.Table, who.res.Table)
		if err != nil {
			errs = append(errs, err)
		}
		merged = m
	}

	if err := r.writeCSV(sources, merged); err != nil {
		errs = append(errs, err)
	}
	if err := r.store(ctx, sources, merged); err != nil {
		errs = append(errs, err)
	}
	if err := r.analyze(owid, who, merged); err != nil {
		errs = append(errs, err)
	}
	r.summary(sources)
	return errors.Join(errs...)
}

// load reads both CSV files concurrently. Per-source failures are recorded
// on the source; only cancellation aborts the run.
func (r *runner) load(ctx context.Context, sources []*source) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range sources {
		if s.cfg.Path == "" {
			s.disabled = true
			r.log.Info("source disabled", "source", s.name())
			continue
		}
		g.Go(func() error {
			start := time.Now()
			p := csvparser.NewParser(csvparser.Options{
				Comma:     comma(s.cfg.Comma),
				TrimSpace: s.cfg.TrimSpace,
				Logger:    r.log.With("source", s.name()),
			})
			raw, skipped, err := p.ReadSource(ctx, file.NewLocal(s.cfg.Path))
			metrics.RecordStep(r.cfg.Job, s.name(), "load", err, time.Since(start))
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.err = fmt.Errorf("%s: load: %w", s.name(), err)
				metrics.RecordSource(r.cfg.Job, s.name(), err)
				r.log.Error("load failed", "source", s.name(), "path", s.cfg.Path, "error", err)
				return nil
			}
			s.raw, s.skipped = raw, skipped
			metrics.RecordRows(r.cfg.Job, s.name(), metrics.RowsSkipped, skipped)
			r.log.Info("loaded", "source", s.name(), "path", s.cfg.Path,
				"rows", raw.Len(), "columns", raw.Width(), "skipped", skipped)
			return nil
		})
	}
	return g.Wait()
}

func comma(s string) rune {
	if s == "" {
		return 0
	}
	return []rune(s)[0]
}

func (r *runner) clean(s *source) {
	if s.disabled || s.err != nil {
		return
	}
	res, err := s.adapter.Clean(s.raw)
	if err != nil {
		s.err = err
		return
	}
	s.res = res
	res.Report.Log(r.log, r.cfg.Cleaning.MissingWarnRatio)
}

// mergeColumn picks the WHO column compared against OWID incidence.
func mergeColumn(who *table.Table) (string, bool) {
	for _, c := range []string{"tb_incidence", "tb_treatment_success_rate"} {
		if who.Has(c) {
			return c, true
		}
	}
	return "", false
}

func (r *runner) merge(owid, who *table.Table) (*table.Table, error) {
	col, ok := mergeColumn(who)
	if !ok || !owid.Has("tb_incidence") {
		r.log.Warn("merge skipped: no comparable columns")
		return nil, nil
	}
	m, err := analysis.Merge(owid, who, "tb_incidence", col)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	r.log.Info("merged", "rows", m.Len(), "who_column", col)
	return m, nil
}

func (r *runner) writeCSV(sources []*source, merged *table.Table) error {
	var errs []error
	for _, s := range sources {
		if !s.ok() {
			continue
		}
		path := filepath.Join(r.cfg.Output.Dir, "tb_"+s.name()+"_cleaned.csv")
		if err := csvparser.WriteFile(path, s.res.Table); err != nil {
			errs = append(errs, err)
			continue
		}
		r.log.Info("wrote cleaned table", "source", s.name(), "path", path, "rows", s.res.Table.Len())
	}
	if merged != nil {
		path := filepath.Join(r.cfg.Output.Dir, "tb_merged.csv")
		if err := csvparser.WriteFile(path, merged); err != nil {
			errs = append(errs, err)
		} else {
			r.log.Info("wrote merged table", "path", path, "rows", merged.Len())
		}
	}
	return errors.Join(errs...)
}

func (r *runner) store(ctx context.Context, sources []*source, merged *table.Table) error {
	if r.cfg.Storage.Kind == "" {
		return nil
	}
	repo, err := storage.New(ctx, r.cfg.Storage)
	if err != nil {
		return err
	}
	defer repo.Close()

	save := func(name string, t *table.Table) error {
		start := time.Now()
		n, err := storage.Save(ctx, r.log, repo, r.cfg.Storage, name, t)
		metrics.RecordStep(r.cfg.Job, name, "store", err, time.Since(start))
		if err != nil {
			return err
		}
		metrics.RecordRows(r.cfg.Job, name, metrics.RowsStored, int(n))
		return nil
	}

	var errs []error
	for _, s := range sources {
		if s.ok() {
			errs = append(errs, save(s.name(), s.res.Table))
		}
	}
	if merged != nil {
		errs = append(errs, save("merged", merged))
	}
	return errors.Join(errs...)
}

// analyze computes the summary series, logs the headline figures and, when
// configured, renders everything into the workbook.
func (r *runner) analyze(owid, who *source, merged *table.Table) error {
	var wb *export.Workbook
	if r.cfg.Output.XLSX != "" {
		w, err := export.New()
		if err != nil {
			return err
		}
		defer w.Close()
		wb = w
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var reports []report.Validation
	for _, s := range []*source{owid, who} {
		if !s.ok() {
			continue
		}
		reports = append(reports, s.res.Report)
		if wb != nil {
			add(wb.AddTable(s.name()+"_cleaned", s.res.Table))
		}
	}
	if wb != nil && merged != nil {
		add(wb.AddTable("merged", merged))
	}
	if wb != nil && len(reports) > 0 {
		add(wb.AddReports("report", reports...))
	}

	if owid.ok() && owid.res.Table.Has("tb_incidence") {
		add(r.series(wb, owid.res.Table, "owid", "tb_incidence", "TB incidence"))
	}
	if who.ok() && who.res.Table.Has("tb_treatment_success_rate") {
		add(r.series(wb, who.res.Table, "who", "tb_treatment_success_rate", "Treatment success rate (%)"))
	}
	if who.ok() {
		cov, err := analysis.ProgramCoverage(who.res.Table)
		switch {
		case errors.Is(err, table.ErrSchema):
			r.log.Debug("program coverage skipped", "reason", err)
		case err != nil:
			add(err)
		default:
			r.log.Info("program coverage", "years", cov.Len(), "columns", cov.Names()[1:])
			if wb != nil {
				add(wb.AddTable("who_program_coverage", cov))
			}
		}
	}

	if wb != nil && len(errs) == 0 {
		if err := wb.Save(r.cfg.Output.XLSX); err != nil {
			return err
		}
		r.log.Info("wrote workbook", "path", r.cfg.Output.XLSX)
	}
	return errors.Join(errs...)
}

// series computes the yearly trend and the top-N ranking of column for one
// source and adds both as charts.
func (r *runner) series(wb *export.Workbook, t *table.Table, name, column, label string) error {
	trend, err := analysis.GlobalTrend(t, column)
	if err != nil {
		return err
	}
	top, year, err := analysis.TopN(t, column, 0, r.cfg.Analysis.TopN)
	if err != nil {
		return err
	}
	attrs := []any{"source", name, "column", column, "years", len(trend)}
	if len(trend) > 0 {
		last := trend[len(trend)-1]
		attrs = append(attrs, "latest_year", last.Year, "latest_mean", last.Mean)
	}
	if len(top) > 0 {
		attrs = append(attrs, "top_year", year, "top_country", top[0].Country, "top_value", top[0].Value)
	}
	r.log.Info("trend", attrs...)

	if wb == nil {
		return nil
	}
	trendTbl := analysis.TrendTable(column, trend)
	if err := wb.AddChart(name+"_trend", trendTbl, export.Chart{
		Kind:     export.LineChart,
		Title:    fmt.Sprintf("Global %s over time (%s)", label, name),
		XTitle:   "Year",
		YTitle:   label,
		Category: "year",
		Value:    trendTbl.Names()[1],
	}); err != nil {
		return err
	}
	return wb.AddChart(name+"_top", analysis.Table(column, top), export.Chart{
		Kind:     export.BarChart,
		Title:    fmt.Sprintf("Top %d countries by %s (%d)", len(top), label, year),
		XTitle:   "Country",
		YTitle:   label,
		Category: "country",
		Value:    column,
	})
}

func (r *runner) summary(sources []*source) {
	for _, s := range sources {
		if s.disabled {
			continue
		}
		if !s.ok() {
			r.log.Warn("source failed", "source", s.name(), "error", s.err)
			continue
		}
		rep := s.res.Report
		r.log.Info("summary",
			"source", s.name(),
			"rows", rep.Rows,
			"columns", rep.Width(),
			"year_min", rep.YearMin,
			"year_max", rep.YearMax,
			"countries", rep.Countries,
			"outlier_rows", len(rep.OutlierRows),
			"skipped_lines", s.skipped,
		)
	}
}
