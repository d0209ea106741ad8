package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 1990, cfg.Cleaning.MinYear)
	assert.Equal(t, 2023, cfg.Cleaning.MaxYear)
	assert.Equal(t, 3.0, cfg.Cleaning.OutlierZ)
	assert.Equal(t, 100.0, cfg.Cleaning.PercentHigh)
	assert.Equal(t, 0.8, cfg.Cleaning.MissingWarnRatio)
	assert.Equal(t, 10, cfg.Analysis.TopN)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	p := writeFile(t, "run.yaml", `
job: weekly
sources:
  owid: { path: in/owid.csv }
  who: { path: in/who.csv, comma: ";" }
cleaning:
  min_year: 2000
  max_year: 2020
  outlier_z: 2.5
storage:
  kind: sqlite
  dsn: "file:tb.db"
  auto_create: true
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "weekly", cfg.Job)
	assert.Equal(t, "in/owid.csv", cfg.Sources.OWID.Path)
	assert.Equal(t, ";", cfg.Sources.WHO.Comma)
	assert.Equal(t, 2000, cfg.Cleaning.MinYear)
	assert.Equal(t, 2.5, cfg.Cleaning.OutlierZ)
	assert.Equal(t, 100.0, cfg.Cleaning.PercentHigh, "untouched fields keep defaults")
	assert.Equal(t, "sqlite", cfg.Storage.Kind)
}

func TestLoad_JSON(t *testing.T) {
	p := writeFile(t, "run.json", `{"job":"j","analysis":{"top_n":5},"output":{"dir":"out","xlsx":"out/tb.xlsx"}}`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Analysis.TopN)
	assert.Equal(t, "out/tb.xlsx", cfg.Output.XLSX)
}

func TestLoad_EmptyYAMLIsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	_, err := Load(writeFile(t, "bad.json", `{"jbo":"typo"}`))
	require.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "cleaning:\n  outlier: 3\n"))
	require.Error(t, err)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "run.toml", "job = 'x'"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TBETL_CLEANING_OUTLIER_Z", "4.5")
	t.Setenv("TBETL_STORAGE_KIND", "postgres")
	t.Setenv("TBETL_STORAGE_DSN", "postgres://u@localhost/tb")
	t.Setenv("TBETL_SOURCES_WHO_PATH", "/data/who.csv")
	t.Setenv("TBETL_ANALYSIS_TOP_N", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4.5, cfg.Cleaning.OutlierZ)
	assert.Equal(t, "postgres", cfg.Storage.Kind)
	assert.Equal(t, "postgres://u@localhost/tb", cfg.Storage.DSN)
	assert.Equal(t, "/data/who.csv", cfg.Sources.WHO.Path)
	assert.Equal(t, 3, cfg.Analysis.TopN)
	assert.NotEqual(t, os.Getenv("PATH"), cfg.Sources.OWID.Path)
}

func TestLoad_StructValidation(t *testing.T) {
	cases := map[string]string{
		"negative z":        "cleaning:\n  outlier_z: -1\n",
		"inverted years":    "cleaning:\n  min_year: 2020\n  max_year: 2000\n",
		"bad storage kind":  "storage:\n  kind: oracle\n  dsn: x\n",
		"kind without dsn":  "storage:\n  kind: sqlite\n",
		"bad ratio":         "cleaning:\n  missing_warn_ratio: 1.5\n",
		"bad dedup policy":  "cleaning:\n  dedup_policy: random\n",
		"bad log level":     "log:\n  level: loud\n",
		"multi-char comma":  "sources:\n  owid: { path: a.csv, comma: ';;' }\n",
		"zero top n":        "analysis:\n  top_n: 0\n",
		"empty output dir":  "output:\n  dir: ''\n",
		"bad pushgateway":   "metrics:\n  backend: pushgateway\n  pushgateway_url: not a url\n",
		"unknown backend":   "metrics:\n  backend: graphite\n",
	}
	for name, body := range cases {
		_, err := Load(writeFile(t, "c.yaml", body))
		assert.Error(t, err, name)
	}
}
