package core

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"strconv"
	"strings"
)

// Value is a single typed cell. Exactly one of the payload fields is
// meaningful, selected by Type.
type Value struct {
	typ ColumnType
	i   int64
	f   float64
	s   string
	b   []byte
}

// Row is an ordered sequence of values positionally aligned to a schema.
type Row []Value

func Integer(v int64) Value { return Value{typ: IntegerType, i: v} }

func Real(v float64) Value { return Value{typ: RealType, f: v} }

func Text(v string) Value { return Value{typ: TextType, s: v} }

func Blob(v []byte) Value { return Value{typ: BlobType, b: v} }

func (v Value) Type() ColumnType { return v.typ }

func (v Value) Int() int64 { return v.i }

func (v Value) Float() float64 { return v.f }

func (v Value) Str() string { return v.s }

func (v Value) Bytes() []byte { return v.b }

// IsNumeric reports whether v is an INTEGER or REAL value.
func (v Value) IsNumeric() bool {
	return v.typ == IntegerType || v.typ == RealType
}

// AsFloat widens a numeric value to float64.
func (v Value) AsFloat() float64 {
	if v.typ == IntegerType {
		return float64(v.i)
	}
	return v.f
}

// Native returns the value as int64, float64, string or []byte.
func (v Value) Native() any {
	switch v.typ {
	case IntegerType:
		return v.i
	case RealType:
		return v.f
	case BlobType:
		return v.b
	default:
		return v.s
	}
}

// String renders the value for display. Blobs are shown as X'..' literals.
func (v Value) String() string {
	switch v.typ {
	case IntegerType:
		return strconv.FormatInt(v.i, 10)
	case RealType:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case BlobType:
		return "X'" + strings.ToUpper(hex.EncodeToString(v.b)) + "'"
	default:
		return v.s
	}
}

// Literal renders the value as SQL literal text that parses back to v.
func (v Value) Literal() string {
	switch v.typ {
	case TextType:
		return "'" + strings.ReplaceAll(v.s, "'", "''") + "'"
	case RealType:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	default:
		return v.String()
	}
}

func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case IntegerType:
		return v.i == o.i
	case RealType:
		return v.f == o.f
	case BlobType:
		return bytes.Equal(v.b, o.b)
	default:
		return v.s == o.s
	}
}

// Clone returns a copy of v that does not share blob storage.
func (v Value) Clone() Value {
	if v.typ == BlobType && v.b != nil {
		v.b = bytes.Clone(v.b)
	}
	return v
}

// Compare orders two values: numerically when both are INTEGER or REAL
// (int64 when both are integers, float64 otherwise), lexicographically for
// TEXT and byte-wise for BLOB. ok is false when the kinds are not
// comparable.
func Compare(a, b Value) (c int, ok bool) {
	switch {
	case a.typ == IntegerType && b.typ == IntegerType:
		return cmp.Compare(a.i, b.i), true
	case a.IsNumeric() && b.IsNumeric():
		return cmp.Compare(a.AsFloat(), b.AsFloat()), true
	case a.typ == TextType && b.typ == TextType:
		return strings.Compare(a.s, b.s), true
	case a.typ == BlobType && b.typ == BlobType:
		return bytes.Compare(a.b, b.b), true
	}
	return 0, false
}

func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for i, v := range r {
		out[i] = v.Clone()
	}
	return out
}

func (r Row) Equal(o Row) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if !r[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = v.String()
	}
	return out
}
