package distinct_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docq/pkg/distinct"
	"github.com/papercomputeco/docq/pkg/element"
)

var _ = Describe("Hash128", func() {
	It("carries into the high word on overflow", func() {
		h := distinct.Hash128{Hi: 7, Lo: math.MaxUint64}
		Expect(h.Add(1)).To(Equal(distinct.Hash128{Hi: 8, Lo: 0}))
	})

	It("round trips through its byte form", func() {
		h := distinct.Hash128{Hi: 0x0102030405060708, Lo: 0x1112131415161718}
		b := h.Bytes()
		Expect(b).To(HaveLen(16))
		Expect(b[0]).To(Equal(byte(0x18)))
		Expect(b[15]).To(Equal(byte(0x01)))

		back, err := distinct.Hash128FromBytes(b)
		Expect(err).NotTo(HaveOccurred())
		Expect(back).To(Equal(h))
	})

	It("rejects byte forms of the wrong length", func() {
		_, err := distinct.Hash128FromBytes([]byte{1, 2, 3})
		Expect(err).To(HaveOccurred())
	})

	It("formats as 32 hex digits", func() {
		Expect(distinct.Hash128{Hi: 1, Lo: 2}.String()).To(Equal("00000000000000010000000000000002"))
	})
})

var _ = Describe("Hash", func() {
	It("is deterministic", func() {
		v := element.MustParse(`{"a":[1,2,{"b":"c"}],"d":null}`)
		Expect(distinct.RootHash(v)).To(Equal(distinct.RootHash(v)))
	})

	It("ignores object property order", func() {
		a := element.MustParse(`{"name":"x","tags":["a","b"],"n":{"p":1,"q":2}}`)
		b := element.MustParse(`{"n":{"q":2,"p":1},"tags":["a","b"],"name":"x"}`)
		Expect(distinct.RootHash(a)).To(Equal(distinct.RootHash(b)))
	})

	It("respects array element order", func() {
		a := element.MustParse(`[true,false,true]`)
		b := element.MustParse(`[true,true,false]`)
		Expect(distinct.RootHash(a)).NotTo(Equal(distinct.RootHash(b)))
	})

	It("hashes integer and float forms of a number identically", func() {
		Expect(distinct.RootHash(element.Int(5))).To(Equal(distinct.RootHash(element.Float(5.0))))
	})

	It("hashes negative zero like zero", func() {
		Expect(distinct.RootHash(element.Number(math.Copysign(0, -1)))).To(Equal(distinct.RootHash(element.Int(0))))
	})

	It("returns the seed unchanged for undefined", func() {
		Expect(distinct.RootHash(element.Undefined{})).To(Equal(distinct.RootSeed))
		Expect(distinct.RootHash(element.Null{})).NotTo(Equal(distinct.RootSeed))
	})

	It("skips undefined object properties and array items", func() {
		withUndefined := element.Object{"a": element.Int(1), "b": element.Undefined{}}
		Expect(distinct.RootHash(withUndefined)).To(Equal(distinct.RootHash(element.Object{"a": element.Int(1)})))
		Expect(distinct.RootHash(element.Object{"b": element.Undefined{}})).To(Equal(distinct.RootHash(element.Object{})))
	})

	It("keeps the variants of similar looking values apart", func() {
		g, err := element.NewGuid("0f8fad5b-d9cb-469f-a165-70867728950e")
		Expect(err).NotTo(HaveOccurred())

		values := []element.Value{
			element.Undefined{},
			element.Null{},
			element.Bool(false),
			element.Bool(true),
			element.Int(0),
			element.Int(1),
			element.String(""),
			element.String("0"),
			element.String("null"),
			element.Array{},
			element.Object{},
			element.Array{element.Null{}},
			element.Object{"": element.Null{}},
			element.Binary{},
			element.Binary{0},
			g,
			element.String(g.String()),
		}

		seen := map[distinct.Hash128]int{}
		for i, v := range values {
			h := distinct.RootHash(v)
			prev, dup := seen[h]
			Expect(dup).To(BeFalse(), "value %d collides with value %d", i, prev)
			seen[h] = i
		}
	})

	It("distinguishes property names from values", func() {
		a := element.MustParse(`{"a":"b"}`)
		b := element.MustParse(`{"b":"a"}`)
		Expect(distinct.RootHash(a)).NotTo(Equal(distinct.RootHash(b)))
	})

	It("distinguishes nesting", func() {
		a := element.MustParse(`[[1],2]`)
		b := element.MustParse(`[1,[2]]`)
		Expect(distinct.RootHash(a)).NotTo(Equal(distinct.RootHash(b)))
	})

	It("depends on the seed", func() {
		v := element.String("x")
		Expect(distinct.Hash(v, distinct.RootSeed)).NotTo(Equal(distinct.Hash(v, distinct.NullSeed)))
	})
})
