package distinct

import (
	"cmp"
	"encoding/base64"
	"fmt"
	"math"
	"slices"

	"github.com/fxamacker/cbor/v2"

	"github.com/papercomputeco/docq/pkg/element"
)

// mapToken is the binary envelope of a Map's seen-set. Every field must be
// present when parsing; nil pointers after decoding mean the field was
// missing or null.
type mapToken struct {
	Numbers             *[]float64 `cbor:"Numbers"`
	StringsLength4      *[]uint32  `cbor:"StringsLength4"`
	StringsLength8      *[]int64   `cbor:"StringsLength8"`
	StringsLength16     *[][]byte  `cbor:"StringsLength16"`
	StringsLength16Plus *[][]byte  `cbor:"StringsLength16+"`
	Arrays              *[][]byte  `cbor:"Arrays"`
	Object              *[][]byte  `cbor:"Object"`
	SimpleValues        *string    `cbor:"SimpleValues"`
}

var (
	tokenEncMode cbor.EncMode
	tokenDecMode cbor.DecMode
)

func init() {
	var err error

	tokenEncMode, err = cbor.EncOptions{
		Sort:       cbor.SortNone,
		NaNConvert: cbor.NaNConvert7e00,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	tokenDecMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: math.MaxInt32,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// ContinuationToken serializes the seen-set. The result is deterministic for
// a given set of values and is accepted by TryCreate.
func (m *Map) ContinuationToken() (string, error) {
	numbers := make([]float64, 0, len(m.numbers))
	for bits := range m.numbers {
		numbers = append(numbers, math.Float64frombits(bits))
	}
	slices.SortFunc(numbers, func(a, b float64) int {
		return cmp.Compare(math.Float64bits(a), math.Float64bits(b))
	})

	strings4 := sortedKeys(m.strings4)

	strings8 := make([]int64, 0, len(m.strings8))
	for _, u := range sortedKeys(m.strings8) {
		strings8 = append(strings8, int64(u))
	}

	simple := m.simple.String()
	tok := mapToken{
		Numbers:             &numbers,
		StringsLength4:      &strings4,
		StringsLength8:      &strings8,
		StringsLength16:     hashesToBytes(m.strings16),
		StringsLength16Plus: hashesToBytes(m.strings16Plus),
		Arrays:              hashesToBytes(m.arrays),
		Object:              hashesToBytes(m.objects),
		SimpleValues:        &simple,
	}

	b, err := tokenEncMode.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf("encoding distinct map token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (m *Map) restore(token string) error {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return NewMalformedTokenError("distinct map token is not valid base64", err)
	}

	var tok mapToken
	if err := tokenDecMode.Unmarshal(raw, &tok); err != nil {
		return NewMalformedTokenError("distinct map token has an invalid envelope", err)
	}

	if tok.Numbers == nil {
		return missingField("Numbers")
	}
	if tok.StringsLength4 == nil {
		return missingField("StringsLength4")
	}
	if tok.StringsLength8 == nil {
		return missingField("StringsLength8")
	}
	if tok.SimpleValues == nil {
		return missingField("SimpleValues")
	}

	for _, f := range *tok.Numbers {
		m.numbers[math.Float64bits(element.Number(f).Canonical())] = struct{}{}
	}
	for _, u := range *tok.StringsLength4 {
		m.strings4[u] = struct{}{}
	}
	for _, i := range *tok.StringsLength8 {
		m.strings8[uint64(i)] = struct{}{}
	}

	hashFields := []struct {
		name   string
		values *[][]byte
		set    map[Hash128]struct{}
	}{
		{"StringsLength16", tok.StringsLength16, m.strings16},
		{"StringsLength16+", tok.StringsLength16Plus, m.strings16Plus},
		{"Arrays", tok.Arrays, m.arrays},
		{"Object", tok.Object, m.objects},
	}
	for _, field := range hashFields {
		if field.values == nil {
			return missingField(field.name)
		}
		for i, b := range *field.values {
			h, err := Hash128FromBytes(b)
			if err != nil {
				return NewMalformedTokenError(fmt.Sprintf("distinct map token field %q element %d", field.name, i), err)
			}
			field.set[h] = struct{}{}
		}
	}

	simple, err := ParseSimpleValues(*tok.SimpleValues)
	if err != nil {
		return NewMalformedTokenError("distinct map token field \"SimpleValues\"", err)
	}
	m.simple = simple

	return nil
}

func missingField(name string) error {
	return NewMalformedTokenError(fmt.Sprintf("distinct map token is missing field %q", name), nil)
}

func sortedKeys[K cmp.Ordered](set map[K]struct{}) []K {
	keys := make([]K, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func hashesToBytes(set map[Hash128]struct{}) *[][]byte {
	hashes := make([]Hash128, 0, len(set))
	for h := range set {
		hashes = append(hashes, h)
	}
	slices.SortFunc(hashes, func(a, b Hash128) int {
		if c := cmp.Compare(a.Hi, b.Hi); c != 0 {
			return c
		}
		return cmp.Compare(a.Lo, b.Lo)
	})

	out := make([][]byte, 0, len(hashes))
	for _, h := range hashes {
		out = append(out, h.Bytes())
	}
	return &out
}
