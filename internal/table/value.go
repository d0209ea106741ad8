package table

import (
	"math"
	"strconv"
)

type valueKind uint8

const (
	nullValue valueKind = iota
	stringValue
	numberValue
)

// Value is a single table cell: missing, a string, or a number. The zero
// Value is missing.
type Value struct {
	kind valueKind
	s    string
	f    float64
}

// Null returns the missing marker.
func Null() Value { return Value{} }

// Str wraps s as a string cell.
func Str(s string) Value { return Value{kind: stringValue, s: s} }

// Num wraps f as a numeric cell. NaN is stored as missing so that no stage
// ever has to tell the two apart.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: numberValue, f: f}
}

// IsNull reports whether v is missing.
func (v Value) IsNull() bool { return v.kind == nullValue }

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.kind == numberValue }

// Float returns the numeric payload and true when v is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != numberValue {
		return 0, false
	}
	return v.f, true
}

// Text renders v the way it is written back to CSV: "" for missing, the
// shortest round-trip form for numbers.
func (v Value) Text() string {
	switch v.kind {
	case stringValue:
		return v.s
	case numberValue:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return ""
	}
}

// Any returns v as a driver-friendly value: nil, string or float64.
func (v Value) Any() any {
	switch v.kind {
	case stringValue:
		return v.s
	case numberValue:
		return v.f
	default:
		return nil
	}
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case stringValue:
		return v.s == o.s
	case numberValue:
		return v.f == o.f
	default:
		return true
	}
}

// String implements fmt.Stringer; missing values print as <NA>.
func (v Value) String() string {
	if v.kind == nullValue {
		return "<NA>"
	}
	return v.Text()
}
