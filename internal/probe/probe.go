// Package probe inspects a raw CSV export before a run: how its headers
// normalize, which columns read as numbers, how much is missing and, for a
// known source, what a dry-run clean would keep.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"tbetl/internal/adapter"
	"tbetl/internal/config"
	"tbetl/internal/datasource"
	csvparser "tbetl/internal/parser/csv"
	"tbetl/internal/table"
	"tbetl/internal/transformer/builtin"
)

// Options control parsing and the optional dry run.
type Options struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune
	// Source selects a dry-run adapter: "owid", "who" or empty for none.
	Source string
	// Cleaning configures the dry-run adapter.
	Cleaning config.Cleaning
}

// Column describes one raw column.
type Column struct {
	Header    string `json:"header"`
	Canonical string `json:"canonical"`
	Kind      string `json:"kind"`
	Missing   int    `json:"missing"`
}

// DryRun is the outcome of cleaning the sample with a source adapter.
type DryRun struct {
	Source   string `json:"source"`
	Rows     int    `json:"rows"`
	Outliers int    `json:"outlier_rows"`
	Error    string `json:"error,omitempty"`
}

// Result is the probe report of one file.
type Result struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Skipped int      `json:"skipped"`
	Columns []Column `json:"columns"`
	// Issues lists header problems that would fail a run.
	Issues []string `json:"issues,omitempty"`
	DryRun *DryRun  `json:"dry_run,omitempty"`
}

// Probe reads src and describes it. Only read failures are returned as
// errors; header problems are reported in Result.Issues.
func Probe(ctx context.Context, src datasource.Source, opt Options) (Result, error) {
	raw, skipped, err := csvparser.NewParser(csvparser.Options{Comma: opt.Comma}).ReadSource(ctx, src)
	if err != nil {
		return Result{}, err
	}
	res := Result{Name: src.Name(), Rows: raw.Len(), Skipped: skipped}

	typed := raw
	if norm, err := builtin.NormalizeColumns(raw); err != nil {
		res.Issues = append(res.Issues, issue(err))
	} else if coerced, _, err := (builtin.Coerce{Infer: true}).Apply(norm); err != nil {
		res.Issues = append(res.Issues, issue(err))
	} else {
		typed = coerced
	}

	for j, c := range raw.Columns() {
		col := Column{Header: c.Name, Canonical: builtin.CanonicalName(c.Name), Kind: typed.Column(j).Kind.String()}
		for i := 0; i < typed.Len(); i++ {
			if typed.At(i, j).IsNull() {
				col.Missing++
			}
		}
		res.Columns = append(res.Columns, col)
	}

	if opt.Source != "" {
		res.DryRun = dryRun(raw, opt)
	}
	return res, nil
}

func issue(err error) string {
	var se *table.SchemaError
	if errors.As(err, &se) && se.Column != "" {
		return fmt.Sprintf("column %q: %s", se.Column, se.Detail)
	}
	return err.Error()
}

func dryRun(raw *table.Table, opt Options) *DryRun {
	var a *adapter.Adapter
	switch opt.Source {
	case "owid":
		a = adapter.OWID(opt.Cleaning)
	case "who":
		a = adapter.WHO(opt.Cleaning)
	default:
		return &DryRun{Source: opt.Source, Error: fmt.Sprintf("unknown source %q", opt.Source)}
	}
	d := &DryRun{Source: opt.Source}
	res, err := a.Clean(raw)
	if err != nil {
		d.Error = err.Error()
		return d
	}
	d.Rows = res.Table.Len()
	d.Outliers = len(res.Report.OutlierRows)
	return d
}

// Text renders one "header,canonical,kind,missing" line per column followed
// by issues and the dry-run line.
func (r Result) Text() []byte {
	var buf bytes.Buffer
	for _, c := range r.Columns {
		fmt.Fprintf(&buf, "%s,%s,%s,%d\n", c.Header, c.Canonical, c.Kind, c.Missing)
	}
	for _, iss := range r.Issues {
		fmt.Fprintf(&buf, "issue: %s\n", iss)
	}
	if d := r.DryRun; d != nil {
		if d.Error != "" {
			fmt.Fprintf(&buf, "dry-run %s: error: %s\n", d.Source, d.Error)
		} else {
			fmt.Fprintf(&buf, "dry-run %s: %d of %d rows kept, %d outlier rows\n", d.Source, d.Rows, r.Rows, d.Outliers)
		}
	}
	return buf.Bytes()
}

// JSON renders r as indented JSON with a trailing newline.
func (r Result) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// DecodeDelimiter converts a user-supplied string into a single rune
// delimiter. Empty or invalid input yields ','.
func DecodeDelimiter(s string) rune {
	if s == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ','
	}
	return r
}
