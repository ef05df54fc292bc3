package element

import (
	"strconv"
	"strings"
)

// Path projects v along a dotted property path such as "address.city".
// Numeric steps index into arrays. A step that does not resolve yields
// Undefined. An empty path returns v itself.
func Path(v Value, path string) Value {
	if path == "" {
		return v
	}

	current := v
	for _, step := range strings.Split(path, ".") {
		switch c := current.(type) {
		case Object:
			next, ok := c[step]
			if !ok || next == nil {
				return Undefined{}
			}
			current = next
		case Array:
			i, err := strconv.Atoi(step)
			if err != nil || i < 0 || i >= len(c) {
				return Undefined{}
			}
			current = c[i]
		default:
			return Undefined{}
		}
	}

	return current
}
