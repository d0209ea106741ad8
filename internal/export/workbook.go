// Package export renders cleaned tables, validation reports and analysis
// series into a single XLSX workbook with native charts.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"tbetl/internal/report"
	"tbetl/internal/table"
)

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

// Workbook accumulates sheets until Save.
type Workbook struct {
	f      *excelize.File
	header int
	sheets int
}

// New starts an empty workbook.
func New() (*Workbook, error) {
	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: header style: %w", err)
	}
	return &Workbook{f: f, header: style}, nil
}

// sheet creates a sheet, reusing the default first sheet for the first call.
func (w *Workbook) sheet(name string) (string, error) {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	if w.sheets == 0 {
		if err := w.f.SetSheetName(w.f.GetSheetName(0), name); err != nil {
			return "", fmt.Errorf("xlsx: rename sheet %s: %w", name, err)
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return "", fmt.Errorf("xlsx: new sheet %s: %w", name, err)
	}
	w.sheets++
	return name, nil
}

// AddTable writes t to a new sheet: a bold header row, then one row per
// table row. Numbers are stored as numbers and missing cells stay empty.
func (w *Workbook) AddTable(name string, t *table.Table) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return err
	}
	if err := w.writeRows(sheet, t); err != nil {
		return err
	}
	if t.Width() > 0 {
		last, _ := excelize.ColumnNumberToName(t.Width())
		_ = w.f.SetColWidth(sheet, "A", last, 16)
		_ = w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	return nil
}

func (w *Workbook) writeRows(sheet string, t *table.Table) error {
	header := make([]any, t.Width())
	for j, n := range t.Names() {
		header[j] = n
	}
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: %s header: %w", sheet, err)
	}
	if t.Width() > 0 {
		last, _ := excelize.CoordinatesToCellName(t.Width(), 1)
		if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
			return fmt.Errorf("xlsx: %s header style: %w", sheet, err)
		}
	}
	row := make([]any, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j := range row {
			v := t.At(i, j)
			switch {
			case v.IsNull():
				row[j] = nil
			case v.IsNumber():
				row[j], _ = v.Float()
			default:
				row[j] = v.Text()
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: %s row %d: %w", sheet, i, err)
		}
	}
	return nil
}

// AddReports writes one summary block per validation report, followed by
// the per-column missing counts.
func (w *Workbook) AddReports(name string, reps ...report.Validation) error {
	sheet, err := w.sheet(name)
	if err != nil {
		return err
	}
	r := 1
	put := func(vals ...any) error {
		cell, _ := excelize.CoordinatesToCellName(1, r)
		r++
		return w.f.SetSheetRow(sheet, cell, &vals)
	}
	for _, rep := range reps {
		rows := [][]any{
			{"source", rep.Name},
			{"rows", rep.Rows},
			{"columns", rep.Width()},
			{"year_min", rep.YearMin},
			{"year_max", rep.YearMax},
			{"countries", rep.Countries},
			{"outlier_rows", len(rep.OutlierRows)},
			{"column", "kind", "missing"},
		}
		for _, vals := range rows {
			if err := put(vals...); err != nil {
				return fmt.Errorf("xlsx: %s: %w", sheet, err)
			}
		}
		for _, c := range rep.Columns {
			if err := put(c.Name, c.Kind, c.Missing); err != nil {
				return fmt.Errorf("xlsx: %s: %w", sheet, err)
			}
		}
		r++
	}
	_ = w.f.SetColWidth(sheet, "A", "A", 28)
	return nil
}

// ChartKind selects the chart drawn next to a series sheet.
type ChartKind int

const (
	// LineChart plots values over the category column.
	LineChart ChartKind = iota
	// BarChart draws horizontal bars, one per category.
	BarChart
)

// Chart describes a chart over a two-dimensional series table.
type Chart struct {
	Kind   ChartKind
	Title  string
	XTitle string
	YTitle string
	// Category and Value name the columns used for the axis labels and the
	// plotted values.
	Category string
	Value    string
}

// AddChart writes t to a new sheet and draws c beside it. An empty t gets a
// sheet without a chart.
func (w *Workbook) AddChart(name string, t *table.Table, c Chart) error {
	ci, ok := t.Index(c.Category)
	if !ok {
		return &table.SchemaError{Op: "chart", Column: c.Category, Rows: t.Len(), Detail: "column not found"}
	}
	vi, ok := t.Index(c.Value)
	if !ok {
		return &table.SchemaError{Op: "chart", Column: c.Value, Rows: t.Len(), Detail: "column not found"}
	}
	sheet, err := w.sheet(name)
	if err != nil {
		return err
	}
	if err := w.writeRows(sheet, t); err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}

	typ := excelize.Line
	if c.Kind == BarChart {
		typ = excelize.Bar
	}
	anchor, _ := excelize.CoordinatesToCellName(t.Width()+2, 2)
	chart := &excelize.Chart{
		Type: typ,
		Series: []excelize.ChartSeries{{
			Name:       rangeRef(sheet, vi+1, 1, 1),
			Categories: rangeRef(sheet, ci+1, 2, t.Len()+1),
			Values:     rangeRef(sheet, vi+1, 2, t.Len()+1),
		}},
		Title:     []excelize.RichTextRun{{Text: c.Title}},
		Legend:    excelize.ChartLegend{Position: "none"},
		XAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: c.XTitle}}},
		YAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: c.YTitle}}},
		Dimension: excelize.ChartDimension{Width: 720, Height: 400},
	}
	if err := w.f.AddChart(sheet, anchor, chart); err != nil {
		return fmt.Errorf("xlsx: %s chart: %w", sheet, err)
	}
	return nil
}

// rangeRef renders an absolute reference like 'Sheet'!$B$2:$B$9.
func rangeRef(sheet string, col, from, to int) string {
	name, _ := excelize.ColumnNumberToName(col)
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if from == to {
		return fmt.Sprintf("%s!$%s$%d", quoted, name, from)
	}
	return fmt.Sprintf("%s!$%s$%d:$%s$%d", quoted, name, from, name, to)
}

// Save writes the workbook to path through a temporary sibling file.
func (w *Workbook) Save(path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("xlsx: create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("xlsx: create temp for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	w.f.SetActiveSheet(0)
	if _, err = w.f.WriteTo(f); err != nil {
		return fmt.Errorf("xlsx: write %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("xlsx: close %s: %w", path, err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("xlsx: rename into %s: %w", path, err)
	}
	return nil
}

// Close releases the workbook's resources.
func (w *Workbook) Close() error { return w.f.Close() }
