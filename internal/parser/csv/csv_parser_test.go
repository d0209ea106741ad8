package csv_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tbetl/internal/datasource/file"
	pcsv "tbetl/internal/parser/csv"
	"tbetl/internal/table"
)

func TestParse_HeaderBOMAndMissing(t *testing.T) {
	t.Parallel()

	in := "\uFEFFEntity, Year ,Estimated incidence\nAfghanistan,2000,190\nAlbania,2000,\n"
	tbl, skipped, err := pcsv.NewParser(pcsv.Options{}).Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, []string{"Entity", "Year", "Estimated incidence"}, tbl.Names())
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "190", tbl.At(0, 2).Text())
	assert.True(t, tbl.At(1, 2).IsNull())
	assert.Equal(t, table.KindString, tbl.Column(1).Kind)
}

func TestParse_SkipsRaggedRows(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	p := pcsv.NewParser(pcsv.Options{
		TrimSpace: true,
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
		LogLimit:  1,
	})
	in := "country,year\nA,2000\nB\nC,2001,extra\n D , 2002 \n"
	tbl, skipped, err := p.Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "D", tbl.At(1, 0).Text())
	assert.Equal(t, "2002", tbl.At(1, 1).Text())

	assert.Equal(t, 1, strings.Count(logs.String(), "skipping row"), "log limit honored")
	assert.Contains(t, logs.String(), "line=3")
}

func TestParse_Semicolon(t *testing.T) {
	t.Parallel()

	tbl, _, err := pcsv.NewParser(pcsv.Options{Comma: ';'}).Parse(strings.NewReader("a;b\n1;2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Names())
	assert.Equal(t, "2", tbl.At(0, 1).Text())
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := pcsv.NewParser(pcsv.Options{}).Parse(strings.NewReader(""))
	require.True(t, errors.Is(err, pcsv.ErrNoHeader))

	_, _, err = pcsv.NewParser(pcsv.Options{}).Parse(strings.NewReader("a,a\n1,2\n"))
	require.ErrorIs(t, err, table.ErrSchema)
}

// brokenReader serves r and then fails every later read with err.
type brokenReader struct {
	r   *strings.Reader
	err error
}

func (b *brokenReader) Read(p []byte) (int, error) {
	if b.r.Len() == 0 {
		return 0, b.err
	}
	return b.r.Read(p)
}

func TestParse_ReadErrorStopsParse(t *testing.T) {
	t.Parallel()

	ioErr := errors.New("read: input/output error")
	done := make(chan error, 1)
	go func() {
		_, _, err := pcsv.NewParser(pcsv.Options{}).Parse(&brokenReader{r: strings.NewReader("a,b\n1,2\n"), err: ioErr})
		done <- err
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ioErr)
		assert.Contains(t, err.Error(), "csv: read")
	case <-time.After(5 * time.Second):
		t.Fatal("Parse did not return on a persistent read error")
	}
}

func TestReadSource(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "who.csv")
	require.NoError(t, os.WriteFile(p, []byte("country,year,c_newinc_100k\nA,2020,5\n"), 0o644))

	tbl, _, err := pcsv.NewParser(pcsv.Options{}).ReadSource(context.Background(), file.NewLocal(p))
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	_, _, err = pcsv.NewParser(pcsv.Options{}).ReadSource(context.Background(), file.NewLocal(p+".missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()

	tbl := table.MustNew(
		[]table.Column{{Name: "country"}, {Name: "year", Kind: table.KindInt}, {Name: "rate", Kind: table.KindFloat}},
		[][]table.Value{
			{table.Str("Côte d'Ivoire"), table.Num(2001), table.Num(12.5)},
			{table.Str("A, B"), table.Num(2002), table.Null()},
		},
	)
	var buf bytes.Buffer
	require.NoError(t, pcsv.Write(&buf, tbl))
	assert.Equal(t, "country,year,rate\nCôte d'Ivoire,2001,12.5\n\"A, B\",2002,\n", buf.String())

	path := filepath.Join(t.TempDir(), "out", "tb_owid_cleaned.csv")
	require.NoError(t, pcsv.WriteFile(path, tbl))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
