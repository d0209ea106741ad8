package probe

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tbetl/internal/config"
	"tbetl/internal/datasource/file"
)

func writeCSV(t *testing.T, body string) *file.Local {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return file.NewLocal(p)
}

func TestProbe_DescribesColumns(t *testing.T) {
	t.Parallel()

	src := writeCSV(t, "Entity,Year,Deaths (per 100k)\nA,2000,1.5\nA,2001,n/a\nB,2000,\n")
	res, err := Probe(context.Background(), src, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Rows)
	assert.Empty(t, res.Issues)
	assert.Equal(t, []Column{
		{Header: "Entity", Canonical: "entity", Kind: "string", Missing: 0},
		{Header: "Year", Canonical: "year", Kind: "float", Missing: 0},
		{Header: "Deaths (per 100k)", Canonical: "deaths_per_100k", Kind: "float", Missing: 2},
	}, res.Columns)
	assert.Equal(t, "Entity,entity,string,0\nYear,year,float,0\nDeaths (per 100k),deaths_per_100k,float,2\n", string(res.Text()))
}

func TestProbe_ReportsCollision(t *testing.T) {
	t.Parallel()

	src := writeCSV(t, "TB Rate,tb_rate\n1,2\n")
	res, err := Probe(context.Background(), src, Options{})
	require.NoError(t, err)

	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0], `column "tb_rate"`)
	assert.Equal(t, "string", res.Columns[0].Kind)
}

func TestProbe_DryRun(t *testing.T) {
	t.Parallel()

	src := writeCSV(t, "country,year,tb_treatment_success_rate\nA,2000,90\nA,2000,91\nB,,80\n")
	res, err := Probe(context.Background(), src, Options{Source: "who", Cleaning: config.Defaults().Cleaning})
	require.NoError(t, err)

	require.NotNil(t, res.DryRun)
	assert.Equal(t, DryRun{Source: "who", Rows: 1}, *res.DryRun)
	assert.Contains(t, string(res.Text()), "dry-run who: 1 of 3 rows kept")

	b, err := res.JSON()
	require.NoError(t, err)
	var back Result
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "who", back.DryRun.Source)
}

func TestProbe_UnknownSource(t *testing.T) {
	t.Parallel()

	res, err := Probe(context.Background(), writeCSV(t, "a\n1\n"), Options{Source: "cdc"})
	require.NoError(t, err)
	assert.Equal(t, `unknown source "cdc"`, res.DryRun.Error)
}

func TestProbe_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Probe(context.Background(), file.NewLocal(filepath.Join(t.TempDir(), "nope.csv")), Options{})
	require.Error(t, err)
}

func TestDecodeDelimiter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ',', DecodeDelimiter(""))
	assert.Equal(t, ';', DecodeDelimiter(";"))
	assert.Equal(t, '\t', DecodeDelimiter("\t"))
}
