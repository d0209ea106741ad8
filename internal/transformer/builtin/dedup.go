// Package builtin contains the reusable cleaning stages: column
// normalization, renaming, type coercion, row requirements, de-duplication,
// the missing-value policy, range clipping and outlier flagging.
//
// DeDup collapses records that agree on a configured business key and
// chooses a winner according to a policy:
//
//   - "keep-first"   : keep the earliest occurrence (default)
//   - "keep-last"    : keep the latest occurrence
//   - "most-complete": keep the row with the most non-missing cells;
//     ties break by "keep-first"
//
// Winners keep their original relative order. Keys are compared by kind and
// value, each cell encoded as kind, length and text, so run DeDup after Coerce when the same key may be spelled "2001"
// and "2001.0" in the raw file.
package builtin

import (
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"tbetl/internal/table"
	"tbetl/internal/transformer"
)

// DefaultKeys is the (identifier, time) key shared by both sources.
var DefaultKeys = []string{"country", "year"}

// DeDup implements a configurable, in-memory de-duplication policy.
type DeDup struct {
	// Keys are the columns that form the business key; empty means DefaultKeys.
	Keys []string

	// Policy selects the winner among duplicates.
	Policy string
}

func (DeDup) Name() string { return "drop_duplicates" }

func (d DeDup) Apply(in *table.Table) (*table.Table, transformer.Stats, error) {
	out, _, err := d.apply(in)
	return out, transformer.Stats{}, err
}

// DropDuplicates removes rows whose key columns repeat an earlier row,
// keeping the first occurrence. It returns the number of dropped rows.
func DropDuplicates(in *table.Table, keys ...string) (*table.Table, int, error) {
	return DeDup{Keys: keys}.apply(in)
}

func (d DeDup) apply(in *table.Table) (*table.Table, int, error) {
	keys := d.Keys
	if len(keys) == 0 {
		keys = DefaultKeys
	}
	idx := make([]int, len(keys))
	for i, k := range keys {
		j, ok := in.Index(k)
		if !ok {
			return nil, 0, &table.SchemaError{Op: "dedup", Column: k, Rows: in.Len(), Detail: "key column not found"}
		}
		idx[i] = j
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = "keep-first"
	}

	type slot struct {
		row   int
		score int
	}
	winners := make(map[xxh3.Uint128]slot, in.Len())
	var b strings.Builder
	keyOf := func(i int) xxh3.Uint128 {
		b.Reset()
		for _, j := range idx {
			v := in.At(i, j)
			switch {
			case v.IsNull():
				b.WriteByte(0)
			case v.IsNumber():
				b.WriteByte(1)
			default:
				b.WriteByte(2)
			}
			text := v.Text()
			b.WriteString(strconv.Itoa(len(text)))
			b.WriteByte(':')
			b.WriteString(text)
		}
		return xxh3.HashString128(b.String())
	}
	scoreOf := func(i int) int {
		n := 0
		for j := 0; j < in.Width(); j++ {
			if !in.At(i, j).IsNull() {
				n++
			}
		}
		return n
	}

	for i := 0; i < in.Len(); i++ {
		k := keyOf(i)
		prev, exists := winners[k]
		switch policy {
		case "keep-last":
			winners[k] = slot{row: i}
		case "most-complete":
			s := slot{row: i, score: scoreOf(i)}
			if !exists || s.score > prev.score {
				winners[k] = s
			}
		default:
			if !exists {
				winners[k] = slot{row: i}
			}
		}
	}
	if len(winners) == in.Len() {
		return in, 0, nil
	}

	keep := make([]bool, in.Len())
	for _, s := range winners {
		keep[s.row] = true
	}
	out := in.Filter(func(i int) bool { return keep[i] })
	return out, in.Len() - out.Len(), nil
}
