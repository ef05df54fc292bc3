package distinct

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/twmb/murmur3"

	"github.com/papercomputeco/docq/pkg/element"
)

// Hash128 is a 128-bit hash value.
type Hash128 struct {
	Hi uint64
	Lo uint64
}

// Hash128FromBytes decodes the 16-byte little-endian form produced by Bytes.
func Hash128FromBytes(b []byte) (Hash128, error) {
	if len(b) != 16 {
		return Hash128{}, fmt.Errorf("hash128 requires 16 bytes, got %d", len(b))
	}
	return Hash128{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}, nil
}

// Bytes returns the 16-byte little-endian form: low word first, then high word.
func (h Hash128) Bytes() []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:8], h.Lo)
	binary.LittleEndian.PutUint64(b[8:16], h.Hi)
	return b
}

// Add returns h + n as a 128-bit unsigned integer.
func (h Hash128) Add(n uint64) Hash128 {
	lo := h.Lo + n
	hi := h.Hi
	if lo < h.Lo {
		hi++
	}
	return Hash128{Hi: hi, Lo: lo}
}

// Xor returns h ^ other.
func (h Hash128) Xor(other Hash128) Hash128 {
	return Hash128{Hi: h.Hi ^ other.Hi, Lo: h.Lo ^ other.Lo}
}

// IsZero reports whether every bit of h is zero.
func (h Hash128) IsZero() bool {
	return h.Hi == 0 && h.Lo == 0
}

func (h Hash128) String() string {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], h.Hi)
	binary.BigEndian.PutUint64(b[8:16], h.Lo)
	return hex.EncodeToString(b)
}

func seed(lo, hi uint64) Hash128 {
	return Hash128{Hi: hi, Lo: lo}
}

// Seeds for each variant. These are part of the persisted token format:
// changing any of them invalidates every continuation token in flight.
var (
	RootSeed         = seed(0x8846e00284c4cf1f, 0xbfc2359eafc0e2b7)
	NullSeed         = seed(0x156c918bf564ee48, 0x1380f68bb3b0cfe4)
	FalseSeed        = seed(0xe9fc8a4c531cd0dd, 0xc1be517fe893b40c)
	TrueSeed         = seed(0x788488365c8a985d, 0xf86d4abf9a412e74)
	StringSeed       = seed(0x09481be8ef4b56dd, 0x61f53f0a44204cfb)
	ArraySeed        = seed(0xa014512c858eb115, 0xfa573b014c4dc18e)
	ObjectSeed       = seed(0x3dcf187245822449, 0x77b285ac511aef30)
	ArrayIndexSeed   = seed(0x5b1cc3178bd9c593, 0xfe057204216db999)
	PropertyNameSeed = seed(0x7c8be2eba72e4634, 0xc915dde058492a8a)
	BinarySeed       = seed(0xd4edb0ba5c59766b, 0x54841d59fe1ea46c)
	GuidSeed         = seed(0x7cc5e09441fd6cb1, 0x53b5b8939b790f4b)
	NumberSeed       = seed(0x790be1eabd7b9481, 0x2400e8b894ce9c2a)
)

// murmur mixes data into the running hash seed.
func murmur(data []byte, s Hash128) Hash128 {
	h1, h2 := murmur3.SeedSum128(s.Lo, s.Hi, data)
	return Hash128{Hi: h2, Lo: h1}
}

func mixHash(h Hash128, s Hash128) Hash128 {
	return murmur(h.Bytes(), s)
}

// RootHash returns the structural hash of v under the root seed.
func RootHash(v element.Value) Hash128 {
	return Hash(v, RootSeed)
}

// Hash returns the structural hash of v under seed s. Equal values hash
// equally; object property order does not contribute to the result while
// array element order does.
//
// Hash panics if v is not one of the element variants.
func Hash(v element.Value, s Hash128) Hash128 {
	if v == nil {
		return s
	}

	switch v := v.(type) {
	case element.Undefined:
		return s
	case element.Null:
		return mixHash(NullSeed, s)
	case element.Bool:
		if v {
			return mixHash(TrueSeed, s)
		}
		return mixHash(FalseSeed, s)
	case element.Number:
		return hashNumber(v, s)
	case element.String:
		return hashString(string(v), s)
	case element.Binary:
		h := mixHash(BinarySeed, s)
		return murmur(v, h)
	case element.Guid:
		h := mixHash(GuidSeed, s)
		return murmur(v.Bytes(), h)
	case element.Array:
		return hashArray(v, s)
	case element.Object:
		return hashObject(v, s)
	default:
		panic(fmt.Sprintf("distinct: cannot hash value of type %T", v))
	}
}

func hashNumber(n element.Number, s Hash128) Hash128 {
	h := mixHash(NumberSeed, s)

	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(n.Canonical()))
	return murmur(b, h)
}

func hashString(str string, s Hash128) Hash128 {
	h := mixHash(StringSeed, s)
	return murmur([]byte(str), h)
}

func hashArray(arr element.Array, s Hash128) Hash128 {
	h := mixHash(ArraySeed, s)
	for i, item := range arr {
		if element.IsUndefined(item) {
			continue
		}
		itemHash := Hash(item, ArrayIndexSeed.Add(uint64(i)))
		h = mixHash(itemHash, h)
	}
	return h
}

func hashObject(obj element.Object, s Hash128) Hash128 {
	h := mixHash(ObjectSeed, s)

	// XOR keeps the result independent of map iteration order.
	var acc Hash128
	for name, value := range obj {
		if element.IsUndefined(value) {
			continue
		}
		nameHash := hashString(name, PropertyNameSeed)
		acc = acc.Xor(Hash(value, nameHash))
	}

	if !acc.IsZero() {
		h = mixHash(acc, h)
	}
	return h
}
