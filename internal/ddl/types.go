package ddl

import (
	"strings"

	"tbetl/internal/table"
)

// ColumnDef describes a single column in a table definition.
//
// Name is the logical column name; quoting happens at render time. Default is
// emitted as a raw SQL expression.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the dotted table name (e.g. "schema.table") and an ordered
// list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect captures the few places where backends disagree about DDL and
// parameter syntax.
type Dialect struct {
	Name string

	// Open and Close surround identifiers; Close is doubled when it appears
	// inside a name.
	Open, Close string

	// Text, Float and Int are the SQL types used for table column kinds.
	Text, Float, Int string

	// Guard wraps a bare CREATE TABLE statement so that it is a no-op when
	// the table exists. Nil means the dialect supports IF NOT EXISTS.
	Guard func(fqn, stmt string) string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// Ident quotes a single identifier segment.
func (d Dialect) Ident(id string) string {
	return d.Open + strings.ReplaceAll(id, d.Close, d.Close+d.Close) + d.Close
}

// FQN quotes each dot-separated segment of name.
func (d Dialect) FQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Ident(p)
	}
	return strings.Join(parts, ".")
}

// Type maps a column kind to the dialect's SQL type.
func (d Dialect) Type(k table.Kind) string {
	switch k {
	case table.KindFloat:
		return d.Float
	case table.KindInt:
		return d.Int
	default:
		return d.Text
	}
}

func question(int) string { return "?" }

var (
	Postgres = Dialect{
		Name: "postgres", Open: `"`, Close: `"`,
		Text: "TEXT", Float: "DOUBLE PRECISION", Int: "BIGINT",
		Placeholder: func(n int) string { return "$" + itoa(n) },
	}
	SQLite = Dialect{
		Name: "sqlite", Open: `"`, Close: `"`,
		Text: "TEXT", Float: "REAL", Int: "INTEGER",
		Placeholder: question,
	}
	MySQL = Dialect{
		Name: "mysql", Open: "`", Close: "`",
		Text: "VARCHAR(255)", Float: "DOUBLE", Int: "BIGINT",
		Placeholder: question,
	}
	MSSQL = Dialect{
		Name: "mssql", Open: "[", Close: "]",
		Text: "NVARCHAR(255)", Float: "FLOAT", Int: "BIGINT",
		Guard: func(fqn, stmt string) string {
			return "IF OBJECT_ID(N'" + strings.ReplaceAll(fqn, "'", "''") + "', N'U') IS NULL\nBEGIN\n" + stmt + "\nEND"
		},
		Placeholder: func(n int) string { return "@p" + itoa(n) },
	}
)

// FromTable infers a table definition for t. Columns named in notNull are
// rendered NOT NULL; everything else is nullable since cleaned tables keep
// missing values.
func FromTable(fqn string, t *table.Table, d Dialect, notNull ...string) TableDef {
	required := make(map[string]bool, len(notNull))
	for _, n := range notNull {
		required[n] = true
	}
	cols := t.Columns()
	defs := make([]ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = ColumnDef{Name: c.Name, SQLType: d.Type(c.Kind), Nullable: !required[c.Name]}
	}
	return TableDef{FQN: fqn, Columns: defs}
}
