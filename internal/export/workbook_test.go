package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tbetl/internal/report"
	"tbetl/internal/table"
)

func cleaned() *table.Table {
	return table.MustNew(
		[]table.Column{
			{Name: "country", Kind: table.KindString},
			{Name: "year", Kind: table.KindInt},
			{Name: "tb_incidence", Kind: table.KindFloat},
		},
		[][]table.Value{
			{table.Str("A"), table.Num(2000), table.Num(100)},
			{table.Str("A"), table.Num(2001), table.Null()},
			{table.Str("B"), table.Num(2000), table.Num(42.5)},
		},
	)
}

func TestWorkbook_RoundTrip(t *testing.T) {
	t.Parallel()

	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	tbl := cleaned()
	require.NoError(t, w.AddTable("owid_cleaned", tbl))
	require.NoError(t, w.AddReports("report", report.Build("owid", tbl, map[string][]int{"tb_incidence": {0}})))

	trend := table.MustNew(
		[]table.Column{{Name: "year", Kind: table.KindInt}, {Name: "avg_tb_incidence", Kind: table.KindFloat}},
		[][]table.Value{{table.Num(2000), table.Num(71.25)}, {table.Num(2001), table.Num(80)}},
	)
	require.NoError(t, w.AddChart("global_trend", trend, Chart{
		Kind: LineChart, Title: "Global TB incidence", XTitle: "Year", YTitle: "Incidence",
		Category: "year", Value: "avg_tb_incidence",
	}))
	require.NoError(t, w.AddChart("an extremely long sheet name that overflows", trend, Chart{
		Kind: BarChart, Category: "year", Value: "avg_tb_incidence",
	}))

	path := filepath.Join(t.TempDir(), "out", "tb.xlsx")
	require.NoError(t, w.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"owid_cleaned", "report", "global_trend", "an extremely long sheet name th"}, f.GetSheetList())

	rows, err := f.GetRows("owid_cleaned")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"country", "year", "tb_incidence"}, rows[0])
	assert.Equal(t, []string{"A", "2000", "100"}, rows[1])
	assert.Equal(t, []string{"A", "2001"}, rows[2])
	assert.Equal(t, []string{"B", "2000", "42.5"}, rows[3])

	rep, err := f.GetRows("report")
	require.NoError(t, err)
	assert.Equal(t, []string{"source", "owid"}, rep[0])
	assert.Equal(t, []string{"rows", "3"}, rep[1])
	assert.Equal(t, []string{"outlier_rows", "1"}, rep[6])
	assert.Equal(t, []string{"tb_incidence", "float", "1"}, rep[10])
}

func TestAddChart_UnknownColumn(t *testing.T) {
	t.Parallel()

	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	err = w.AddChart("x", cleaned(), Chart{Category: "year", Value: "deaths"})
	require.ErrorIs(t, err, table.ErrSchema)
}

func TestRangeRef(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "'top n'!$B$2:$B$9", rangeRef("top n", 2, 2, 9))
	assert.Equal(t, "'o''k'!$A$1", rangeRef("o'k", 1, 1, 1))
}
