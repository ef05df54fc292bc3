// Package element implements the semi-structured value model used for
// documents, query results and distinct keys.
//
// Value is a closed sum type: the only implementations are the types declared
// in this package. Code that switches over a Value should handle every Kind
// and panic on anything else.
package element

import (
	"math"

	"github.com/google/uuid"
)

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindBinary
	KindGuid
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindBinary:
		return "binary"
	case KindGuid:
		return "guid"
	default:
		return "unknown"
	}
}

// Value is a single semi-structured value.
type Value interface {
	Kind() Kind

	// isValue seals the interface to this package.
	isValue()
}

// Undefined is the absence of a value, e.g. a projection of a missing property.
// It is distinct from Null.
type Undefined struct{}

// Null is the JSON null value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Number is a numeric value. Integer and floating point numbers share one
// representation so that 5 and 5.0 are the same value.
type Number float64

// String is a UTF-8 string value.
type String string

// Array is an ordered sequence of values.
type Array []Value

// Object maps property names to values. Property order is not significant.
type Object map[string]Value

// Binary is an opaque byte blob.
type Binary []byte

// Guid is a 128-bit globally unique identifier.
type Guid uuid.UUID

func (Undefined) Kind() Kind { return KindUndefined }
func (Null) Kind() Kind      { return KindNull }
func (Bool) Kind() Kind      { return KindBool }
func (Number) Kind() Kind    { return KindNumber }
func (String) Kind() Kind    { return KindString }
func (Array) Kind() Kind     { return KindArray }
func (Object) Kind() Kind    { return KindObject }
func (Binary) Kind() Kind    { return KindBinary }
func (Guid) Kind() Kind      { return KindGuid }

func (Undefined) isValue() {}
func (Null) isValue()      {}
func (Bool) isValue()      {}
func (Number) isValue()    {}
func (String) isValue()    {}
func (Array) isValue()     {}
func (Object) isValue()    {}
func (Binary) isValue()    {}
func (Guid) isValue()      {}

// Int returns the Number for an integer.
func Int(i int64) Number {
	return Number(float64(i))
}

// Float returns the Number for a float, folding negative zero into zero.
func Float(f float64) Number {
	if f == 0 {
		return Number(0)
	}
	return Number(f)
}

// Canonical returns n with negative zero folded into zero and every NaN
// folded into a single NaN.
func (n Number) Canonical() float64 {
	f := float64(n)
	switch {
	case f == 0:
		return 0
	case math.IsNaN(f):
		return math.NaN()
	default:
		return f
	}
}

// NewGuid parses the canonical textual form of a guid.
func NewGuid(s string) (Guid, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Guid{}, err
	}
	return Guid(u), nil
}

// Bytes returns the 16-byte binary form of the guid.
func (g Guid) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, g[:])
	return b
}

func (g Guid) String() string {
	return uuid.UUID(g).String()
}

// IsUndefined reports whether v is nil or Undefined.
func IsUndefined(v Value) bool {
	if v == nil {
		return true
	}
	return v.Kind() == KindUndefined
}
