package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users but
	// does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding.
//
// Path is a dotted path into the config (e.g. "storage.dsn"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Lint performs the static checks that struct tags cannot express. It does
// not mutate the config. Callers decide whether warnings are fatal.
func Lint(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, lintSources(c.Sources)...)
	issues = append(issues, lintCleaning(c.Cleaning)...)
	issues = append(issues, lintOutput(c.Output)...)
	issues = append(issues, lintStorage(c.Storage)...)
	issues = append(issues, lintMetrics(c.Metrics)...)

	return issues
}

func lintSources(s Sources) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.OWID.Path) == "" && strings.TrimSpace(s.WHO.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources",
			Message:  "at least one of sources.owid.path and sources.who.path must be set",
		})
		return issues
	}
	for _, src := range []struct {
		name string
		Source
	}{{"owid", s.OWID}, {"who", s.WHO}} {
		name := src.name
		if src.Path == "" {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(src.Path)); ext != ".csv" && ext != ".txt" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "sources." + name + ".path",
				Message:  fmt.Sprintf("extension %q is unusual for a CSV export", ext),
			})
		}
	}
	if s.OWID.Path != "" && filepath.Clean(s.OWID.Path) == filepath.Clean(s.WHO.Path) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources.who.path",
			Message:  "owid and who point at the same file",
		})
	}
	return issues
}

func lintCleaning(c Cleaning) []Issue {
	var issues []Issue

	if c.MinYear > c.MaxYear {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "cleaning.min_year",
			Message:  fmt.Sprintf("min_year %d is after max_year %d", c.MinYear, c.MaxYear),
		})
	}
	if c.OutlierZ > 0 && c.OutlierZ < 2 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "cleaning.outlier_z",
			Message:  fmt.Sprintf("outlier_z=%g will flag a large share of ordinary values", c.OutlierZ),
		})
	}
	if c.PercentLow < 0 || c.PercentHigh > 100 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "cleaning.percent_high",
			Message:  fmt.Sprintf("percentage range [%g, %g] extends beyond [0, 100]", c.PercentLow, c.PercentHigh),
		})
	}
	return issues
}

func lintOutput(o Output) []Issue {
	var issues []Issue

	if o.XLSX != "" && strings.ToLower(filepath.Ext(o.XLSX)) != ".xlsx" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.xlsx",
			Message:  "workbook path should end in .xlsx; spreadsheet tools may refuse to open it",
		})
	}
	return issues
}

func lintStorage(s Storage) []Issue {
	var issues []Issue

	if s.Kind == "" {
		return nil
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty when storage.kind is set",
		})
	}
	if s.Kind == "sqlite" && strings.Contains(s.DSN, ":memory:") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.dsn",
			Message:  "in-memory sqlite database is discarded when the run ends",
		})
	}
	if !s.AutoCreate {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.auto_create",
			Message:  "auto_create is false; target tables must already exist with matching columns",
		})
	}
	return issues
}

func lintMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "metrics.statsd_addr",
				Message:  "statsd_addr is empty; the client falls back to DD_AGENT_HOST",
			})
		}
	}
	return issues
}
