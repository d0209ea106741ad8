// Package csv reads raw CSV exports into all-string tables and writes
// cleaned tables back out. Headers are kept verbatim (apart from a leading
// BOM); canonicalizing them is the normalizer's job.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"tbetl/internal/datasource"
	"tbetl/internal/table"
)

// ErrNoHeader is returned for input without a header row.
var ErrNoHeader = errors.New("csv: input has no header row")

// Options configures the parser. The zero value reads comma-separated input
// with cells kept verbatim.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each cell.
	TrimSpace bool

	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool

	// Logger receives one record per skipped row, up to LogLimit. Nil
	// disables logging.
	Logger   *slog.Logger
	LogLimit int
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if opt.LogLimit <= 0 {
		opt.LogLimit = 20
	}
	return &Parser{opt: opt}
}

// Parse reads a header row and the body into an all-string table. Empty
// cells become missing values. Rows that fail to parse or whose width differs
// from the header are skipped and counted; any other read error ends the
// parse.
func (p *Parser) Parse(r io.Reader) (*table.Table, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.LazyQuotes = p.opt.LazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	headers, err := cr.Read()
	if err == io.EOF {
		return nil, 0, ErrNoHeader
	}
	if err != nil {
		return nil, 0, fmt.Errorf("csv: read header: %w", err)
	}
	headers = StripHeaderBOM(headers)
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var (
		cells   [][]string
		skipped int
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, skipped, fmt.Errorf("csv: read: %w", err)
			}
			p.skip(&skipped, pe.Line, err.Error())
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(row) != len(headers) {
			p.skip(&skipped, line, fmt.Sprintf("incorrect number of fields (expected %d, got %d)", len(headers), len(row)))
			continue
		}
		if p.opt.TrimSpace {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
		cells = append(cells, row)
	}

	t, err := table.Strings(headers, cells)
	if err != nil {
		return nil, skipped, err
	}
	return t, skipped, nil
}

func (p *Parser) skip(n *int, line int, reason string) {
	if p.opt.Logger != nil && *n < p.opt.LogLimit {
		p.opt.Logger.Warn("skipping row", "line", line, "reason", reason)
	}
	*n++
}

// ReadSource opens src and parses it.
func (p *Parser) ReadSource(ctx context.Context, src datasource.Source) (*table.Table, int, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()

	t, skipped, err := p.Parse(rc)
	if err != nil {
		return nil, skipped, fmt.Errorf("%s: %w", src.Name(), err)
	}
	return t, skipped, nil
}
