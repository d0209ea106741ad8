// Package config defines the run configuration for the TB cleaning job.
//
// A Config is built once at startup and passed explicitly to every component;
// nothing reads configuration from globals. Values are layered:
//
//  1. Defaults()
//  2. an optional JSON or YAML file (chosen by extension)
//  3. TBETL_* environment variables (envconfig)
//
// and the result is checked with struct tags (validator) and Lint.
//
// Example (YAML):
//
//	job: tb-weekly
//	sources:
//	  owid: { path: data/raw/tb_owid.csv }
//	  who:  { path: data/raw/tb_who.csv }
//	cleaning:
//	  min_year: 1990
//	  max_year: 2023
//	  outlier_z: 3
//	storage: { kind: sqlite, dsn: "file:tb.db" }
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides. Keys follow the field
// path, e.g. TBETL_STORAGE_DSN or TBETL_CLEANING_OUTLIER_Z.
const EnvPrefix = "TBETL"

// Config is the top-level run configuration.
type Config struct {
	// Job names the run in logs and metrics labels.
	Job string `json:"job" yaml:"job" validate:"required"`

	Sources  Sources  `json:"sources" yaml:"sources"`
	Cleaning Cleaning `json:"cleaning" yaml:"cleaning"`
	Analysis Analysis `json:"analysis" yaml:"analysis"`
	Output   Output   `json:"output" yaml:"output"`
	Storage  Storage  `json:"storage" yaml:"storage"`
	Metrics  Metrics  `json:"metrics" yaml:"metrics"`
	Log      Log      `json:"log" yaml:"log"`
}

// Sources locates the two raw CSV exports.
type Sources struct {
	OWID Source `json:"owid" yaml:"owid"`
	WHO  Source `json:"who" yaml:"who"`
}

// Source is one local CSV file. An empty Path disables the source.
type Source struct {
	Path string `json:"path" yaml:"path"`

	// Comma is the field delimiter; empty means ",".
	Comma string `json:"comma" yaml:"comma" validate:"omitempty,len=1"`

	// TrimSpace trims leading and trailing space from every cell.
	TrimSpace bool `json:"trim_space" yaml:"trim_space" split_words:"true"`
}

// Cleaning carries the validation thresholds shared by both adapters.
type Cleaning struct {
	MinYear int `json:"min_year" yaml:"min_year" validate:"gte=0" split_words:"true"`
	MaxYear int `json:"max_year" yaml:"max_year" validate:"gtefield=MinYear" split_words:"true"`

	// OutlierZ is the z-score threshold for outlier flags.
	OutlierZ float64 `json:"outlier_z" yaml:"outlier_z" validate:"gt=0" split_words:"true"`

	// PercentLow and PercentHigh bound WHO percentage columns.
	PercentLow  float64 `json:"percent_low" yaml:"percent_low" split_words:"true"`
	PercentHigh float64 `json:"percent_high" yaml:"percent_high" validate:"gtefield=PercentLow" split_words:"true"`

	// MissingWarnRatio is the missing share above which a column is reported.
	MissingWarnRatio float64 `json:"missing_warn_ratio" yaml:"missing_warn_ratio" validate:"gt=0,lte=1" split_words:"true"`

	// DropEmptyIndicatorRows removes rows in which every known indicator of
	// the source is missing.
	DropEmptyIndicatorRows bool `json:"drop_empty_indicator_rows" yaml:"drop_empty_indicator_rows" split_words:"true"`

	// DedupPolicy is keep-first, keep-last or most-complete.
	DedupPolicy string `json:"dedup_policy" yaml:"dedup_policy" validate:"omitempty,oneof=keep-first keep-last most-complete" split_words:"true"`
}

// Analysis tunes the summary tables.
type Analysis struct {
	TopN int `json:"top_n" yaml:"top_n" validate:"gte=1" split_words:"true"`
}

// Output controls the files written after cleaning.
type Output struct {
	// Dir receives tb_owid_cleaned.csv, tb_who_cleaned.csv and tb_merged.csv.
	Dir string `json:"dir" yaml:"dir" validate:"required"`

	// XLSX is the workbook path; empty disables the workbook.
	XLSX string `json:"xlsx" yaml:"xlsx"`
}

// Storage selects an optional database sink for cleaned tables.
type Storage struct {
	// Kind is "", postgres, sqlite, mssql or mysql. Empty disables storage.
	Kind string `json:"kind" yaml:"kind" validate:"omitempty,oneof=postgres sqlite mssql mysql"`
	DSN  string `json:"dsn" yaml:"dsn" validate:"required_with=Kind"`

	// TablePrefix is prepended to table names (e.g. "tb_" -> tb_owid).
	TablePrefix string `json:"table_prefix" yaml:"table_prefix" split_words:"true"`

	// AutoCreate creates missing tables from the cleaned schema.
	AutoCreate bool `json:"auto_create" yaml:"auto_create" split_words:"true"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is none, pushgateway or datadog.
	Backend        string `json:"backend" yaml:"backend" validate:"omitempty,oneof=none pushgateway datadog"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url" validate:"omitempty,url" split_words:"true"`
	StatsdAddr     string `json:"statsd_addr" yaml:"statsd_addr" split_words:"true"`
}

// Log configures the process logger.
type Log struct {
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// File, when set, receives a JSON copy of every record.
	File string `json:"file" yaml:"file"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Job: "tbetl",
		Sources: Sources{
			OWID: Source{Path: filepath.Join("data", "raw", "tb_owid.csv")},
			WHO:  Source{Path: filepath.Join("data", "raw", "tb_who.csv")},
		},
		Cleaning: Cleaning{
			MinYear:          1990,
			MaxYear:          2023,
			OutlierZ:         3.0,
			PercentLow:       0,
			PercentHigh:      100,
			MissingWarnRatio: 0.8,
			DedupPolicy:      "keep-first",
		},
		Analysis: Analysis{TopN: 10},
		Output:   Output{Dir: filepath.Join("data", "processed")},
		Metrics:  Metrics{Backend: "none"},
		Log:      Log{Level: "info"},
	}
}

// Load builds a Config from Defaults, the file at path (skipped when path is
// empty), and the environment. The result has passed struct validation; call
// Lint for softer checks.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config: %s: unsupported extension %q (want .json, .yaml or .yml)", path, ext)
	}
	return nil
}
