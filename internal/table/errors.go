package table

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema matches every *SchemaError via errors.Is.
	ErrSchema = errors.New("schema error")
	// ErrInvalidConfig matches every *ConfigError via errors.Is.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SchemaError reports a violated structural precondition: an ambiguous column
// mapping, a missing key column, a malformed row. It is not recoverable by the
// stage that raised it.
type SchemaError struct {
	Op     string // stage that failed, e.g. "normalize", "dedup"
	Column string // offending column, if any
	Rows   int    // row count of the table being processed
	Detail string
}

func (e *SchemaError) Error() string {
	msg := e.Op + ": schema error"
	if e.Column != "" {
		msg += fmt.Sprintf(" on column %q", e.Column)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("%s (rows=%d)", msg, e.Rows)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ConfigError reports an invalid stage parameter, such as a non-positive
// z-score threshold or an inverted clip range. Stages check parameters before
// touching the table, so a ConfigError never comes with a partial result.
type ConfigError struct {
	Op     string
	Param  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Param, e.Detail)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }
