package distinct_test

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/fxamacker/cbor/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
)

func sampleValues() []element.Value {
	return []element.Value{
		element.Undefined{},
		element.Null{},
		element.Bool(true),
		element.Bool(false),
		element.Int(1),
		element.Float(2.5),
		element.Int(-40),
		element.String(""),
		element.String("a"),
		element.String("abcd"),
		element.String("abcde"),
		element.String("abcdefgh"),
		element.String("abcdefghi"),
		element.String("abcdefghijklmnop"),
		element.String("abcdefghijklmnopq"),
		element.String("a\x00"),
		element.Array{},
		element.Object{},
		element.MustParse(`[1,"two",null]`),
		element.MustParse(`{"k":"v","n":[1,2]}`),
		element.Binary{1, 2, 3},
	}
}

func encodeToken(fields map[string]any) string {
	b, err := cbor.Marshal(fields)
	Expect(err).NotTo(HaveOccurred())
	return base64.StdEncoding.EncodeToString(b)
}

func validTokenFields() map[string]any {
	return map[string]any{
		"Numbers":          []float64{},
		"StringsLength4":   []uint32{},
		"StringsLength8":   []int64{},
		"StringsLength16":  [][]byte{},
		"StringsLength16+": [][]byte{},
		"Arrays":           [][]byte{},
		"Object":           [][]byte{},
		"SimpleValues":     "None",
	}
}

var _ = Describe("Map", func() {
	var m *distinct.Map

	BeforeEach(func() {
		var err error
		m, err = distinct.TryCreate(distinct.QueryTypeUnordered, "")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("TryCreate", func() {
		It("rejects query types without distinct tracking", func() {
			_, err := distinct.TryCreate(distinct.QueryTypeNone, "")
			Expect(errors.Is(err, distinct.ErrInvalidQueryType)).To(BeTrue())

			_, err = distinct.TryCreate(distinct.QueryType(42), "")
			Expect(errors.Is(err, distinct.ErrInvalidQueryType)).To(BeTrue())
		})

		It("starts empty", func() {
			Expect(m.Len()).To(Equal(0))
			Expect(m.QueryType()).To(Equal(distinct.QueryTypeUnordered))
		})
	})

	Describe("Add", func() {
		It("reports first sightings only", func() {
			for _, v := range sampleValues() {
				added, _ := m.Add(v)
				Expect(added).To(BeTrue(), "first add of %s", element.Stringify(v))
			}
			for _, v := range sampleValues() {
				added, _ := m.Add(v)
				Expect(added).To(BeFalse(), "second add of %s", element.Stringify(v))
			}
			Expect(m.Len()).To(Equal(len(sampleValues())))
		})

		It("treats equal values as duplicates", func() {
			added, _ := m.Add(element.MustParse(`{"a":1,"b":2}`))
			Expect(added).To(BeTrue())

			added, _ = m.Add(element.MustParse(`{"b":2,"a":1}`))
			Expect(added).To(BeFalse())

			added, _ = m.Add(element.Int(5))
			Expect(added).To(BeTrue())
			added, _ = m.Add(element.Float(5.0))
			Expect(added).To(BeFalse())
		})

		It("keeps a string apart from the same string with a trailing NUL", func() {
			added, _ := m.Add(element.String("ab"))
			Expect(added).To(BeTrue())
			added, _ = m.Add(element.String("ab\x00"))
			Expect(added).To(BeTrue())
			added, _ = m.Add(element.String("ab\x00\x00"))
			Expect(added).To(BeTrue())
		})

		It("returns the zero hash for unordered maps", func() {
			_, h := m.Add(element.String("x"))
			Expect(h.IsZero()).To(BeTrue())
			Expect(m.LastHash().IsZero()).To(BeTrue())
		})

		It("returns the structural hash for ordered maps", func() {
			ordered, err := distinct.TryCreate(distinct.QueryTypeOrdered, "")
			Expect(err).NotTo(HaveOccurred())

			v := element.MustParse(`{"a":[1,2]}`)
			added, h := ordered.Add(v)
			Expect(added).To(BeTrue())
			Expect(h).To(Equal(distinct.RootHash(v)))
			Expect(ordered.LastHash()).To(Equal(h))

			added, h = ordered.Add(v)
			Expect(added).To(BeFalse())
			Expect(h).To(Equal(distinct.RootHash(v)))
		})

		It("suppresses adjacent and earlier duplicates in ordered maps", func() {
			ordered, err := distinct.TryCreate(distinct.QueryTypeOrdered, "")
			Expect(err).NotTo(HaveOccurred())

			var got []bool
			for _, raw := range []string{`1`, `1`, `"a"`, `"a"`, `1`, `[1]`, `[1]`} {
				added, _ := ordered.Add(element.MustParse(raw))
				got = append(got, added)
			}
			Expect(got).To(Equal([]bool{true, false, true, false, false, true, false}))
			Expect(ordered.Len()).To(Equal(3))
			Expect(ordered.LastHash()).To(Equal(distinct.RootHash(element.MustParse(`[1]`))))
		})

		It("starts a restored ordered map without a previous value", func() {
			ordered, err := distinct.TryCreate(distinct.QueryTypeOrdered, "")
			Expect(err).NotTo(HaveOccurred())
			ordered.Add(element.Number(2))

			token, err := ordered.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())

			resumed, err := distinct.TryCreate(distinct.QueryTypeOrdered, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(resumed.LastHash().IsZero()).To(BeTrue())

			added, _ := resumed.Add(element.Number(2))
			Expect(added).To(BeFalse())
			added, _ = resumed.Add(element.Number(3))
			Expect(added).To(BeTrue())
		})
	})

	Describe("ContinuationToken", func() {
		It("restores a map that rejects everything seen before", func() {
			for _, v := range sampleValues() {
				m.Add(v)
			}
			token, err := m.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())

			restored, err := distinct.TryCreate(distinct.QueryTypeUnordered, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.Len()).To(Equal(m.Len()))

			for _, v := range sampleValues() {
				added, _ := restored.Add(v)
				Expect(added).To(BeFalse(), "restored add of %s", element.Stringify(v))
			}

			added, _ := restored.Add(element.String("fresh"))
			Expect(added).To(BeTrue())
		})

		It("is deterministic regardless of insertion order", func() {
			values := sampleValues()
			for _, v := range values {
				m.Add(v)
			}

			other, err := distinct.TryCreate(distinct.QueryTypeUnordered, "")
			Expect(err).NotTo(HaveOccurred())
			for i := len(values) - 1; i >= 0; i-- {
				other.Add(values[i])
			}

			a, err := m.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())
			b, err := other.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(Equal(b))
		})

		It("round trips an empty map", func() {
			token, err := m.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())
			Expect(token).NotTo(BeEmpty())

			restored, err := distinct.TryCreate(distinct.QueryTypeOrdered, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.Len()).To(Equal(0))
		})

		It("keeps exact fidelity for near-miss short strings", func() {
			pairs := [][2]string{
				{"abc", "abd"},
				{"abcdefg", "abcdefh"},
				{"abcdefghijklmno", "abcdefghijklmnp"},
				{"wxyz", "wxy"},
				{"héllo", "hèllo"},
			}

			for _, pair := range pairs {
				m.Add(element.String(pair[0]))
			}
			token, err := m.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())

			restored, err := distinct.TryCreate(distinct.QueryTypeUnordered, token)
			Expect(err).NotTo(HaveOccurred())

			for _, pair := range pairs {
				added, _ := restored.Add(element.String(pair[0]))
				Expect(added).To(BeFalse(), "%q should be a duplicate", pair[0])
				added, _ = restored.Add(element.String(pair[1]))
				Expect(added).To(BeTrue(), "%q should be new", pair[1])
			}
		})

		It("writes every field under its stable name", func() {
			m.Add(element.Null{})
			m.Add(element.Bool(true))
			token, err := m.ContinuationToken()
			Expect(err).NotTo(HaveOccurred())

			raw, err := base64.StdEncoding.DecodeString(token)
			Expect(err).NotTo(HaveOccurred())

			var fields map[string]any
			Expect(cbor.Unmarshal(raw, &fields)).To(Succeed())
			Expect(fields).To(HaveLen(8))
			for _, name := range []string{
				"Numbers", "StringsLength4", "StringsLength8", "StringsLength16",
				"StringsLength16+", "Arrays", "Object", "SimpleValues",
			} {
				Expect(fields).To(HaveKey(name))
			}
			Expect(fields["SimpleValues"]).To(Equal("Null, True"))
		})
	})

	Describe("malformed tokens", func() {
		expectMalformed := func(token string) {
			restored, err := distinct.TryCreate(distinct.QueryTypeUnordered, token)
			Expect(restored).To(BeNil())
			Expect(errors.Is(err, distinct.ErrMalformedToken)).To(BeTrue(), "got %v", err)

			var malformed *distinct.MalformedTokenError
			Expect(errors.As(err, &malformed)).To(BeTrue())
		}

		It("accepts a token with every field present", func() {
			_, err := distinct.TryCreate(distinct.QueryTypeUnordered, encodeToken(validTokenFields()))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects invalid base64", func() {
			expectMalformed("not base64!")
		})

		It("rejects an invalid envelope", func() {
			expectMalformed(base64.StdEncoding.EncodeToString([]byte{0xff, 0x00, 0x13}))
		})

		It("rejects an envelope that is not a map", func() {
			b, err := cbor.Marshal([]string{"Numbers"})
			Expect(err).NotTo(HaveOccurred())
			expectMalformed(base64.StdEncoding.EncodeToString(b))
		})

		for _, name := range []string{
			"Numbers", "StringsLength4", "StringsLength8", "StringsLength16",
			"StringsLength16+", "Arrays", "Object", "SimpleValues",
		} {
			It("rejects a token missing "+name, func() {
				fields := validTokenFields()
				delete(fields, name)
				expectMalformed(encodeToken(fields))
			})
		}

		It("rejects a wrongly typed field", func() {
			fields := validTokenFields()
			fields["Numbers"] = "one, two"
			expectMalformed(encodeToken(fields))
		})

		It("rejects wrongly typed elements", func() {
			fields := validTokenFields()
			fields["StringsLength4"] = []string{"abcd"}
			expectMalformed(encodeToken(fields))
		})

		It("rejects hashes of the wrong width", func() {
			fields := validTokenFields()
			fields["Arrays"] = [][]byte{{1, 2, 3}}
			expectMalformed(encodeToken(fields))
		})

		It("rejects unknown simple values", func() {
			fields := validTokenFields()
			fields["SimpleValues"] = "Null, Maybe"
			expectMalformed(encodeToken(fields))
		})
	})
})

var _ = Describe("SimpleValues", func() {
	It("formats the empty set as None", func() {
		Expect(distinct.SimpleValuesNone.String()).To(Equal("None"))
	})

	It("formats and parses flag names", func() {
		s := distinct.SimpleValuesNull | distinct.SimpleValuesTrue | distinct.SimpleValuesEmptyObject
		Expect(s.String()).To(Equal("Null, True, EmptyObject"))

		parsed, err := distinct.ParseSimpleValues(s.String())
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(s))
	})
})

var _ = Describe("QueryType", func() {
	It("parses names case-insensitively", func() {
		qt, err := distinct.ParseQueryType("Ordered")
		Expect(err).NotTo(HaveOccurred())
		Expect(qt).To(Equal(distinct.QueryTypeOrdered))

		qt, err = distinct.ParseQueryType("")
		Expect(err).NotTo(HaveOccurred())
		Expect(qt).To(Equal(distinct.QueryTypeNone))
	})

	It("rejects unknown names", func() {
		_, err := distinct.ParseQueryType("sorted")
		Expect(errors.Is(err, distinct.ErrInvalidQueryType)).To(BeTrue())
		Expect(strings.Contains(err.Error(), "sorted")).To(BeTrue())
	})
})
