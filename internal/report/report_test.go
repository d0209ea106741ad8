package report

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tbetl/internal/table"
)

func fixture(t *testing.T) *table.Table {
	t.Helper()
	n, s, null := table.Num, table.Str, table.Null()
	tbl, err := table.New(
		[]table.Column{
			{Name: "country"},
			{Name: "year", Kind: table.KindInt},
			{Name: "rate", Kind: table.KindFloat},
			{Name: "notes"},
		},
		[][]table.Value{
			{s("A"), n(2001), n(1), null},
			{s("A"), n(2003), null, null},
			{s("B"), null, null, null},
			{s("C"), n(1999), null, s("x")},
			{s("C"), n(2000), null, null},
		},
	)
	require.NoError(t, err)
	return tbl
}

func TestBuild(t *testing.T) {
	t.Parallel()

	v := Build("owid", fixture(t), map[string][]int{"rate": {3, 1}, "year": {1}, "empty": nil})
	assert.Equal(t, "owid", v.Name)
	assert.Equal(t, 5, v.Rows)
	assert.Equal(t, 4, v.Width())

	m, ok := v.Missing("rate")
	require.True(t, ok)
	assert.Equal(t, 4, m)
	m, _ = v.Missing("year")
	assert.Equal(t, 1, m)
	_, ok = v.Missing("absent")
	assert.False(t, ok)

	assert.Equal(t, []int{1, 3}, v.OutlierRows)
	assert.NotContains(t, v.Outliers, "empty")
	assert.Equal(t, 1999, v.YearMin)
	assert.Equal(t, 2003, v.YearMax)
	assert.Equal(t, 3, v.Countries)
}

func TestBuild_NoYearOrCountry(t *testing.T) {
	t.Parallel()

	tbl := table.MustNew([]table.Column{{Name: "v", Kind: table.KindFloat}}, [][]table.Value{{table.Num(1)}})
	v := Build("x", tbl, nil)
	assert.Zero(t, v.YearMin)
	assert.Zero(t, v.YearMax)
	assert.Zero(t, v.Countries)
	assert.Empty(t, v.OutlierRows)
}

func TestWarnings(t *testing.T) {
	t.Parallel()

	v := Build("owid", fixture(t), nil)
	ws := v.Warnings(0.5)
	require.Len(t, ws, 2)
	assert.Equal(t, "rate", ws[0].Column)
	assert.False(t, ws[0].Empty)
	assert.Equal(t, `column "rate" is 80.0% missing (4 of 5 rows)`, ws[0].String())
	assert.Equal(t, "notes", ws[1].Column)
	assert.False(t, ws[1].Empty, "one value present")

	// At 0.8 the 80% columns are not above the threshold.
	assert.Empty(t, v.Warnings(0.8))

	assert.Nil(t, Validation{}.Warnings(0.8))
}

func TestWarnings_EmptyColumn(t *testing.T) {
	t.Parallel()

	tbl := table.MustNew(
		[]table.Column{{Name: "country"}, {Name: "gone", Kind: table.KindFloat}},
		[][]table.Value{{table.Str("A"), table.Null()}},
	)
	ws := Build("who", tbl, nil).Warnings(0.8)
	require.Len(t, ws, 1)
	assert.True(t, ws[0].Empty)
	assert.Contains(t, ws[0].String(), "completely empty")
}

func TestLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	Build("who", fixture(t), map[string][]int{"rate": {0}}).Log(log, 0.5)

	out := buf.String()
	assert.Contains(t, out, "validation report")
	assert.Contains(t, out, "dataset=who")
	assert.Contains(t, out, "outlier_rows=1")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "column=rate")
}
