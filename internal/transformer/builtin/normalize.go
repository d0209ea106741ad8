package builtin

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tbetl/internal/table"
	"tbetl/internal/transformer"
)

// CanonicalName folds a raw header into the canonical column vocabulary:
// diacritics removed, lowercase, every run of non-alphanumeric characters
// replaced by a single underscore, no leading or trailing underscore.
//
//	"  TB Rate "                                       -> "tb_rate"
//	"Incidence-rate (per 100k)"                        -> "incidence_rate_per_100k"
//	"Estimated incidence of all forms of tuberculosis" -> "estimated_incidence_of_all_forms_of_tuberculosis"
//
// CanonicalName is idempotent.
func CanonicalName(raw string) string {
	// transform.Chain holds state, so build one per call.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	folded, _, err := transform.String(t, strings.TrimSpace(raw))
	if err != nil {
		folded = strings.TrimSpace(raw)
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pending := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// Normalize maps every column name to its canonical form.
type Normalize struct{}

func (Normalize) Name() string { return "normalize_columns" }

func (Normalize) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	out, renamed, err := normalizeColumns(in)
	return out, transformer.Stats{Changed: renamed}, err
}

// NormalizeColumns returns a table whose column names are canonical. Two raw
// names that fold to the same canonical name are an ambiguous mapping and
// fail with a *table.SchemaError naming both.
func NormalizeColumns(in *table.Table) (*table.Table, error) {
	out, _, err := normalizeColumns(in)
	return out, err
}

func normalizeColumns(in *table.Table) (*table.Table, int, error) {
	cols := in.Columns()
	seen := make(map[string]string, len(cols))
	renamed := 0
	for i, c := range cols {
		name := CanonicalName(c.Name)
		if name == "" {
			return nil, 0, &table.SchemaError{
				Op:     "normalize",
				Column: c.Name,
				Rows:   in.Len(),
				Detail: "header has no alphanumeric characters",
			}
		}
		if prev, dup := seen[name]; dup {
			return nil, 0, &table.SchemaError{
				Op:     "normalize",
				Column: name,
				Rows:   in.Len(),
				Detail: fmt.Sprintf("raw columns %q and %q both normalize to %q", prev, c.Name, name),
			}
		}
		seen[name] = c.Name
		if name != c.Name {
			renamed++
		}
		cols[i].Name = name
	}
	if renamed == 0 {
		return in, 0, nil
	}
	out, err := in.WithColumns(cols)
	return out, renamed, err
}
