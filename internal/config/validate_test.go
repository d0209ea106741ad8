package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func TestLint_DefaultsAreClean(t *testing.T) {
	t.Parallel()

	issues := Lint(Defaults())
	assert.Empty(t, issues)
	assert.False(t, HasErrors(issues))
}

func TestLint_MissingJob(t *testing.T) {
	t.Parallel()

	c := Defaults()
	c.Job = " "
	issues := Lint(c)
	assert.True(t, hasIssue(t, issues, SeverityError, "job", "job must not be empty"), "%+v", issues)
	assert.True(t, HasErrors(issues))
}

func TestLint_Sources(t *testing.T) {
	t.Parallel()

	c := Defaults()
	c.Sources = Sources{}
	assert.True(t, hasIssue(t, Lint(c), SeverityError, "sources", "at least one"))

	c.Sources = Sources{OWID: Source{Path: "a.csv"}, WHO: Source{Path: "./a.csv"}}
	assert.True(t, hasIssue(t, Lint(c), SeverityError, "sources.who.path", "same file"))

	c.Sources = Sources{OWID: Source{Path: "a.xlsx"}}
	assert.True(t, hasIssue(t, Lint(c), SeverityWarning, "sources.owid.path", "unusual"))
}

func TestLint_Cleaning(t *testing.T) {
	t.Parallel()

	c := Defaults()
	c.Cleaning.MinYear, c.Cleaning.MaxYear = 2020, 2000
	c.Cleaning.OutlierZ = 1
	c.Cleaning.PercentHigh = 120
	issues := Lint(c)
	assert.True(t, hasIssue(t, issues, SeverityError, "cleaning.min_year", "after max_year"))
	assert.True(t, hasIssue(t, issues, SeverityWarning, "cleaning.outlier_z", "large share"))
	assert.True(t, hasIssue(t, issues, SeverityWarning, "cleaning.percent_high", "beyond"))
}

func TestLint_StorageAndMetrics(t *testing.T) {
	t.Parallel()

	c := Defaults()
	c.Storage = Storage{Kind: "sqlite", DSN: "file::memory:?cache=shared"}
	c.Metrics = Metrics{Backend: "pushgateway"}
	c.Output.XLSX = "out/tb.xls"
	issues := Lint(c)
	assert.True(t, hasIssue(t, issues, SeverityWarning, "storage.dsn", "in-memory"))
	assert.True(t, hasIssue(t, issues, SeverityWarning, "storage.auto_create", "must already exist"))
	assert.True(t, hasIssue(t, issues, SeverityError, "metrics.pushgateway_url", "requires"))
	assert.True(t, hasIssue(t, issues, SeverityWarning, "output.xlsx", ".xlsx"))

	c.Storage = Storage{Kind: "postgres", AutoCreate: true}
	c.Metrics = Metrics{Backend: "datadog"}
	issues = Lint(c)
	assert.True(t, hasIssue(t, issues, SeverityError, "storage.dsn", "must not be empty"))
	assert.True(t, hasIssue(t, issues, SeverityWarning, "metrics.statsd_addr", "DD_AGENT_HOST"))
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	err := error(Issue{Severity: SeverityError, Path: "job", Message: "empty"})
	assert.Equal(t, "error at job: empty", err.Error())
}
