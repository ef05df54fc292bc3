// Package distinct tracks which values a DISTINCT query has already emitted.
//
// A Map partitions seen values by kind. Sentinel values (null, booleans,
// empty containers) take one flag bit each, numbers are kept exactly,
// strings of up to 16 UTF-8 bytes are kept as fixed-width integers holding
// their raw bytes, and everything else is kept as a 128-bit structural hash.
// The whole seen-set serializes into an opaque continuation token so a query
// can resume on another process without re-emitting duplicates.
//
// A Map is not safe for concurrent use.
package distinct

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/papercomputeco/docq/pkg/element"
)

const (
	// maxExactStringLength is the longest string, in bytes, kept by value.
	// Longer strings are kept only by hash.
	maxExactStringLength = 16
)

// Map is a grow-only set of seen values for one DISTINCT query.
type Map struct {
	queryType QueryType

	numbers       map[uint64]struct{}
	strings4      map[uint32]struct{}
	strings8      map[uint64]struct{}
	strings16     map[Hash128]struct{}
	strings16Plus map[Hash128]struct{}
	arrays        map[Hash128]struct{}
	objects       map[Hash128]struct{}
	simple        SimpleValues

	lastHash Hash128
	hasLast  bool
}

func newMap(queryType QueryType) *Map {
	return &Map{
		queryType:     queryType,
		numbers:       make(map[uint64]struct{}),
		strings4:      make(map[uint32]struct{}),
		strings8:      make(map[uint64]struct{}),
		strings16:     make(map[Hash128]struct{}),
		strings16Plus: make(map[Hash128]struct{}),
		arrays:        make(map[Hash128]struct{}),
		objects:       make(map[Hash128]struct{}),
	}
}

// TryCreate returns an empty Map when token is empty, otherwise the Map
// restored from a token previously returned by ContinuationToken.
//
// A token that cannot be fully parsed yields a *MalformedTokenError; there is
// no partial recovery.
func TryCreate(queryType QueryType, token string) (*Map, error) {
	if !queryType.IsDistinct() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, queryType)
	}

	m := newMap(queryType)
	if token == "" {
		return m, nil
	}

	if err := m.restore(token); err != nil {
		return nil, err
	}
	return m, nil
}

// QueryType returns the query type the map was created for.
func (m *Map) QueryType() QueryType {
	return m.queryType
}

// Add records v and reports whether it had not been seen before.
//
// For ordered maps the returned hash is the structural hash of v, which is
// also remembered as LastHash. Unordered maps never need to reproduce a hash
// and return the zero hash.
func (m *Map) Add(v element.Value) (bool, Hash128) {
	if m.queryType != QueryTypeOrdered {
		return m.add(v), Hash128{}
	}

	// Ordered input places duplicates next to each other, so a repeat of
	// the previous value is answered without touching the sets.
	hash := RootHash(v)
	if m.hasLast && hash == m.lastHash {
		return false, hash
	}
	m.lastHash = hash
	m.hasLast = true

	return m.add(v), hash
}

func (m *Map) add(v element.Value) bool {
	if v == nil {
		return m.simple.add(SimpleValuesUndefined)
	}

	switch v := v.(type) {
	case element.Undefined:
		return m.simple.add(SimpleValuesUndefined)
	case element.Null:
		return m.simple.add(SimpleValuesNull)
	case element.Bool:
		if v {
			return m.simple.add(SimpleValuesTrue)
		}
		return m.simple.add(SimpleValuesFalse)
	case element.Number:
		return insert(m.numbers, math.Float64bits(v.Canonical()))
	case element.String:
		return m.addString(v)
	case element.Array:
		if len(v) == 0 {
			return m.simple.add(SimpleValuesEmptyArray)
		}
		return insert(m.arrays, RootHash(v))
	case element.Object:
		if v.Len() == 0 {
			return m.simple.add(SimpleValuesEmptyObject)
		}
		return insert(m.objects, RootHash(v))
	case element.Binary, element.Guid:
		// Kept alongside long strings. The per-kind hash seeds keep them
		// from colliding with string hashes.
		return insert(m.strings16Plus, RootHash(v))
	default:
		panic(fmt.Sprintf("distinct: cannot add value of type %T", v))
	}
}

func (m *Map) addString(s element.String) bool {
	b := []byte(s)
	n := len(b)

	if n == 0 {
		return m.simple.add(SimpleValuesEmptyString)
	}

	// Exact buckets zero-pad the bytes, so a trailing NUL would be
	// indistinguishable from padding. Such strings are kept by hash.
	if n > maxExactStringLength || b[n-1] == 0 {
		return insert(m.strings16Plus, RootHash(s))
	}

	var buf [maxExactStringLength]byte
	copy(buf[:], b)

	switch {
	case n <= 4:
		return insert(m.strings4, binary.LittleEndian.Uint32(buf[:4]))
	case n <= 8:
		return insert(m.strings8, binary.LittleEndian.Uint64(buf[:8]))
	default:
		return insert(m.strings16, Hash128{
			Lo: binary.LittleEndian.Uint64(buf[0:8]),
			Hi: binary.LittleEndian.Uint64(buf[8:16]),
		})
	}
}

// LastHash returns the hash of the most recently added value for ordered
// maps, and the zero hash otherwise.
func (m *Map) LastHash() Hash128 {
	return m.lastHash
}

// Len returns the number of distinct values seen so far.
func (m *Map) Len() int {
	n := len(m.numbers) + len(m.strings4) + len(m.strings8) + len(m.strings16) +
		len(m.strings16Plus) + len(m.arrays) + len(m.objects)

	for _, sv := range simpleValueNames {
		if m.simple&sv.flag != 0 {
			n++
		}
	}
	return n
}

func insert[K comparable](set map[K]struct{}, key K) bool {
	if _, ok := set[key]; ok {
		return false
	}
	set[key] = struct{}{}
	return true
}
