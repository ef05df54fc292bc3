package distinct

import (
	"fmt"
	"strings"
)

// SimpleValues is a bitset of sentinel values that are tracked with a single
// flag instead of a set entry.
type SimpleValues uint8

const (
	SimpleValuesNone        SimpleValues = 0
	SimpleValuesUndefined   SimpleValues = 1 << 0
	SimpleValuesNull        SimpleValues = 1 << 1
	SimpleValuesFalse       SimpleValues = 1 << 2
	SimpleValuesTrue        SimpleValues = 1 << 3
	SimpleValuesEmptyString SimpleValues = 1 << 4
	SimpleValuesEmptyArray  SimpleValues = 1 << 5
	SimpleValuesEmptyObject SimpleValues = 1 << 6
)

var simpleValueNames = []struct {
	flag SimpleValues
	name string
}{
	{SimpleValuesUndefined, "Undefined"},
	{SimpleValuesNull, "Null"},
	{SimpleValuesFalse, "False"},
	{SimpleValuesTrue, "True"},
	{SimpleValuesEmptyString, "EmptyString"},
	{SimpleValuesEmptyArray, "EmptyArray"},
	{SimpleValuesEmptyObject, "EmptyObject"},
}

// String returns the symbolic form used in continuation tokens: the set flag
// names joined by ", ", or "None".
func (s SimpleValues) String() string {
	if s == SimpleValuesNone {
		return "None"
	}

	names := make([]string, 0, len(simpleValueNames))
	for _, sv := range simpleValueNames {
		if s&sv.flag != 0 {
			names = append(names, sv.name)
		}
	}
	return strings.Join(names, ", ")
}

// ParseSimpleValues is the inverse of SimpleValues.String.
func ParseSimpleValues(s string) (SimpleValues, error) {
	if strings.TrimSpace(s) == "None" {
		return SimpleValuesNone, nil
	}

	var out SimpleValues
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		flag, ok := lookupSimpleValue(part)
		if !ok {
			return SimpleValuesNone, fmt.Errorf("unknown simple value %q", part)
		}
		out |= flag
	}
	return out, nil
}

func lookupSimpleValue(name string) (SimpleValues, bool) {
	for _, sv := range simpleValueNames {
		if sv.name == name {
			return sv.flag, true
		}
	}
	return SimpleValuesNone, false
}

// add sets flag and reports whether it was previously unset.
func (s *SimpleValues) add(flag SimpleValues) bool {
	if *s&flag != 0 {
		return false
	}
	*s |= flag
	return true
}
