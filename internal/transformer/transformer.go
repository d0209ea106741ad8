// Package transformer defines the stage contract shared by the cleaning
// pipeline and the Chain that runs stages in order.
package transformer

import (
	"time"

	"tbetl/internal/table"
)

// Transformer is a single cleaning stage. Apply must not modify its input;
// it returns a new table (or the input itself when nothing changed) together
// with per-stage counters.
type Transformer interface {
	Name() string
	Apply(*table.Table) (*table.Table, Stats, error)
}

// Stats carries the observable side-channel of one stage run. Step, RowsIn,
// RowsOut and Duration are filled in by Chain.
type Stats struct {
	Step     string
	RowsIn   int
	RowsOut  int
	Changed  int              // cells rewritten (filled, clipped, coerced)
	Invalid  int              // cells that could not be coerced and became missing
	Flagged  map[string][]int // outlier row positions per column
	Duration time.Duration
}

// Dropped is the number of rows the stage removed.
func (s Stats) Dropped() int { return s.RowsIn - s.RowsOut }

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every stage in order and returns the last table along with the
// stats of each completed stage.
func (c Chain) Apply(in *table.Table) (*table.Table, []Stats, error) {
	return c.Run(in, nil)
}

// Run is Apply with an observer that is called after every stage, including
// the one that failed. On error the returned table is the input of the
// failing stage.
func (c Chain) Run(in *table.Table, observe func(Stats, error)) (*table.Table, []Stats, error) {
	out := in
	all := make([]Stats, 0, len(c))
	for _, t := range c {
		if t == nil {
			continue
		}
		start := time.Now()
		next, st, err := t.Apply(out)
		st.Step = t.Name()
		st.RowsIn = out.Len()
		st.Duration = time.Since(start)
		if err != nil {
			st.RowsOut = out.Len()
			all = append(all, st)
			if observe != nil {
				observe(st, err)
			}
			return out, all, err
		}
		st.RowsOut = next.Len()
		all = append(all, st)
		if observe != nil {
			observe(st, nil)
		}
		out = next
	}
	return out, all, nil
}
