package store

import "bytes"

// Kind discriminates the scalar types a Value can hold.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBytes
)

// Value is the typed scalar the attribute codecs convert to and from a
// backend's native attribute representation. The zero Value is an empty
// string.
type Value struct {
	kind Kind
	s    string
	n    int64
	b    []byte
}

// String wraps a string scalar.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int wraps an integer scalar.
func Int(n int64) Value { return Value{kind: KindInt, n: n} }

// Bytes wraps an opaque byte blob. The slice is not copied.
func Bytes(b []byte) Value { return Value{kind: KindBytes, b: b} }

// Kind reports the scalar type.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string form; zero unless KindString.
func (v Value) Str() string { return v.s }

// Int returns the integer form; zero unless KindInt.
func (v Value) Int() int64 { return v.n }

// Bytes returns the blob form; nil unless KindBytes.
func (v Value) Bytes() []byte { return v.b }

// Equal reports deep equality of kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.n == o.n
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	}
	return false
}
