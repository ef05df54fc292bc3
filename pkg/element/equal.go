package element

import (
	"bytes"
	"fmt"
	"math"
)

// Equal reports whether a and b are structurally equal. Objects compare
// without regard to property order; arrays compare element by element.
// Undefined object properties are ignored, matching how they serialize.
func Equal(a, b Value) bool {
	if IsUndefined(a) || IsUndefined(b) {
		return IsUndefined(a) && IsUndefined(b)
	}

	if a.Kind() != b.Kind() {
		return false
	}

	switch a := a.(type) {
	case Null:
		return true
	case Bool:
		return a == b.(Bool)
	case Number:
		return math.Float64bits(a.Canonical()) == math.Float64bits(b.(Number).Canonical())
	case String:
		return a == b.(String)
	case Binary:
		return bytes.Equal(a, b.(Binary))
	case Guid:
		return a == b.(Guid)
	case Array:
		other := b.(Array)
		if len(a) != len(other) {
			return false
		}
		for i := range a {
			if !Equal(a[i], other[i]) {
				return false
			}
		}
		return true
	case Object:
		other := b.(Object)
		if a.Len() != other.Len() {
			return false
		}
		for name, value := range a {
			if IsUndefined(value) {
				continue
			}
			if !Equal(value, other[name]) {
				return false
			}
		}
		return true
	default:
		panic(fmt.Sprintf("element: unexpected value %T", a))
	}
}

// Len returns the number of properties that are not Undefined.
func (o Object) Len() int {
	n := 0
	for _, v := range o {
		if !IsUndefined(v) {
			n++
		}
	}
	return n
}
