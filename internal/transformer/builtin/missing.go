package builtin

import (
	"fmt"
	"sort"
	"strings"

	"tbetl/internal/table"
	"tbetl/internal/transformer"
)

// Rule is the missing-value behavior for one measurement column. It is a
// closed set: DropRow, ForwardFill or Leave.
type Rule interface{ rule() }

type (
	// DropRow removes any row missing the column.
	DropRow struct{}
	// ForwardFill replaces a missing value with the nearest preceding
	// observed value of the same group in time order.
	ForwardFill struct{}
	// Leave keeps missing values as they are.
	Leave struct{}
)

func (DropRow) rule()     {}
func (ForwardFill) rule() {}
func (Leave) rule()       {}

// Rules maps column names to their missing-value rule.
type Rules map[string]Rule

// Missing applies Rules. Group and Time name the identifier and time columns
// used by ForwardFill; they default to "country" and "year". Default, when
// set, applies to every numeric column other than Group and Time that has no
// entry in Rules.
//
// DropRow rules run first, so dropped rows never serve as a fill source.
// ForwardFill orders rows by (group, time) with a stable sort, fills within
// each group, and writes results back to the original row positions, so the
// output keeps the input order. Rows with a missing group or time are neither
// filled nor used as a fill source.
type Missing struct {
	Rules   Rules
	Default Rule
	Group   string
	Time    string
}

func (Missing) Name() string { return "handle_missing" }

// HandleMissing applies rules using the default group and time columns.
func HandleMissing(in *table.Table, rules Rules) (*table.Table, transformer.Stats, error) {
	return Missing{Rules: rules}.Apply(in)
}

func (m Missing) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	var st transformer.Stats
	group, tcol := m.Group, m.Time
	if group == "" {
		group = "country"
	}
	if tcol == "" {
		tcol = "year"
	}

	// Deterministic order: schema order, not map order.
	var drop, fill []int
	for name, r := range m.Rules {
		if r == nil {
			return nil, st, &table.ConfigError{Op: "handle_missing", Param: "rule", Detail: fmt.Sprintf("nil rule for column %q", name)}
		}
		if !in.Has(name) {
			return nil, st, &table.SchemaError{Op: "handle_missing", Column: name, Rows: in.Len(), Detail: "rule column not found"}
		}
	}
	for j, c := range in.Columns() {
		r, ok := m.Rules[c.Name]
		if !ok {
			if m.Default == nil || !c.Kind.Numeric() || c.Name == group || c.Name == tcol {
				continue
			}
			r = m.Default
		}
		switch r.(type) {
		case DropRow:
			drop = append(drop, j)
		case ForwardFill:
			fill = append(fill, j)
		case Leave:
		}
	}

	out := in
	if len(drop) > 0 {
		out = out.Filter(func(i int) bool {
			for _, j := range drop {
				if in.At(i, j).IsNull() {
					return false
				}
			}
			return true
		})
	}
	if len(fill) == 0 {
		return out, st, nil
	}

	gj, ok := out.Index(group)
	if !ok {
		return nil, st, &table.SchemaError{Op: "handle_missing", Column: group, Rows: out.Len(), Detail: "forward fill needs the group column"}
	}
	tj, ok := out.Index(tcol)
	if !ok {
		return nil, st, &table.SchemaError{Op: "handle_missing", Column: tcol, Rows: out.Len(), Detail: "forward fill needs the time column"}
	}

	order := make([]int, 0, out.Len())
	for i := 0; i < out.Len(); i++ {
		if out.At(i, gj).IsNull() || out.At(i, tj).IsNull() {
			continue
		}
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := order[a], order[b]
		if c := strings.Compare(out.At(ra, gj).Text(), out.At(rb, gj).Text()); c != 0 {
			return c < 0
		}
		return lessValue(out.At(ra, tj), out.At(rb, tj))
	})

	for _, j := range fill {
		name := out.Column(j).Name
		vals, _ := out.Values(name)
		filled := 0
		var (
			curGroup string
			last     table.Value
		)
		for n, i := range order {
			g := out.At(i, gj).Text()
			if n == 0 || g != curGroup {
				curGroup = g
				last = table.Null()
			}
			if vals[i].IsNull() {
				if !last.IsNull() {
					vals[i] = last
					filled++
				}
				continue
			}
			last = vals[i]
		}
		if filled == 0 {
			continue
		}
		next, err := out.ReplaceColumn(name, out.Column(j).Kind, vals)
		if err != nil {
			return nil, st, err
		}
		out = next
		st.Changed += filled
	}
	return out, st, nil
}

// lessValue orders numbers numerically and everything else by text.
func lessValue(a, b table.Value) bool {
	fa, oka := a.Float()
	fb, okb := b.Float()
	if oka && okb {
		return fa < fb
	}
	return a.Text() < b.Text()
}
