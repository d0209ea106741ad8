package builtin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tbetl/internal/table"
)

// strTable builds an all-string table; "" cells are missing.
func strTable(t *testing.T, header []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl, err := table.Strings(header, rows)
	require.NoError(t, err)
	return tbl
}

// numTable builds a table with a string "country" column, a numeric "year"
// column and one float column per extra name. nil pointers are missing.
func numTable(t *testing.T, extra []string, rows ...[]any) *table.Table {
	t.Helper()
	cols := []table.Column{{Name: "country"}, {Name: "year", Kind: table.KindInt}}
	for _, n := range extra {
		cols = append(cols, table.Column{Name: n, Kind: table.KindFloat})
	}
	out := make([][]table.Value, len(rows))
	for i, r := range rows {
		require.Len(t, r, len(cols))
		row := make([]table.Value, len(r))
		for j, v := range r {
			switch x := v.(type) {
			case nil:
			case string:
				row[j] = table.Str(x)
			case int:
				row[j] = table.Num(float64(x))
			case float64:
				row[j] = table.Num(x)
			default:
				t.Fatalf("unsupported cell %T", v)
			}
		}
		out[i] = row
	}
	tbl, err := table.New(cols, out)
	require.NoError(t, err)
	return tbl
}

func column(t *testing.T, tbl *table.Table, name string) []string {
	t.Helper()
	vals, ok := tbl.Values(name)
	require.True(t, ok, "column %q", name)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}
