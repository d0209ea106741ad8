package builtin

import (
	"fmt"

	"tbetl/internal/table"
	"tbetl/internal/transformer"
)

// Rename maps source-specific canonical names onto the shared vocabulary,
// e.g. "entity" -> "country". Names absent from the table are ignored.
type Rename struct {
	Map map[string]string
}

func (Rename) Name() string { return "rename" }

func (r Rename) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	if len(r.Map) == 0 {
		return in, transformer.Stats{}, nil
	}
	cols := in.Columns()
	from := make(map[string]string, len(cols))
	changed := 0
	for i, c := range cols {
		to, ok := r.Map[c.Name]
		if !ok || to == c.Name {
			continue
		}
		cols[i].Name = to
		from[to] = c.Name
		changed++
	}
	if changed == 0 {
		return in, transformer.Stats{}, nil
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c.Name]; dup {
			return nil, transformer.Stats{}, &table.SchemaError{
				Op:     "rename",
				Column: c.Name,
				Rows:   in.Len(),
				Detail: fmt.Sprintf("renaming %q would collide with an existing column", from[c.Name]),
			}
		}
		seen[c.Name] = struct{}{}
	}
	out, err := in.WithColumns(cols)
	return out, transformer.Stats{Changed: changed}, err
}
