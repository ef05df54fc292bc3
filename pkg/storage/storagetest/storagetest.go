// Package storagetest holds the behavior every storage.Driver must share,
// written as ginkgo specs that driver test suites mount.
package storagetest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docq/pkg/element"
	"github.com/papercomputeco/docq/pkg/storage"
)

// DriverSpecs declares the shared driver specs. newDriver is called before
// each spec; the returned driver is closed after it.
func DriverSpecs(newDriver func(ctx context.Context) storage.Driver) {
	var (
		driver     storage.Driver
		ctx        context.Context
		collection string
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver(ctx)

		// Unique names keep specs independent on shared databases.
		collection = "c-" + uuid.NewString()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
			driver = nil
		}
	})

	put := func(raw string) int64 {
		seq, err := driver.Put(ctx, collection, element.MustParse(raw))
		Expect(err).NotTo(HaveOccurred())
		return seq
	}

	Describe("Put", func() {
		It("assigns increasing sequence numbers", func() {
			first := put(`{"n":1}`)
			second := put(`{"n":2}`)

			Expect(first).To(BeNumerically(">", 0))
			Expect(second).To(BeNumerically(">", first))
		})

		It("rejects nil documents", func() {
			_, err := driver.Put(ctx, collection, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get", func() {
		It("returns the stored document", func() {
			seq := put(`{"name":"x","tags":["a","b"],"nested":{"ok":true}}`)

			record, err := driver.Get(ctx, collection, seq)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Seq).To(Equal(seq))
			Expect(element.Equal(record.Document, element.MustParse(`{"nested":{"ok":true},"tags":["a","b"],"name":"x"}`))).To(BeTrue())
		})

		It("returns NotFoundError for unknown documents", func() {
			_, err := driver.Get(ctx, collection, 987654321)

			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(notFound.Seq).To(Equal(int64(987654321)))
		})

		It("does not cross collections", func() {
			seq := put(`1`)

			_, err := driver.Get(ctx, collection+"-other", seq)
			Expect(errors.As(err, &storage.NotFoundError{})).To(BeTrue())
		})
	})

	Describe("Scan", func() {
		It("pages through a collection in sequence order", func() {
			var seqs []int64
			for _, raw := range []string{`1`, `2`, `3`, `4`, `5`} {
				seqs = append(seqs, put(raw))
			}

			first, err := driver.Scan(ctx, collection, 0, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(HaveLen(2))
			Expect(first[0].Seq).To(Equal(seqs[0]))
			Expect(first[1].Seq).To(Equal(seqs[1]))

			rest, err := driver.Scan(ctx, collection, first[1].Seq, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(rest).To(HaveLen(3))
			Expect(rest[2].Document).To(Equal(element.Value(element.Number(5))))

			empty, err := driver.Scan(ctx, collection, rest[2].Seq, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(empty).To(BeEmpty())
		})

		It("rejects non-positive limits", func() {
			_, err := driver.Scan(ctx, collection, 0, 0)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Count and Collections", func() {
		It("reports per-collection counts", func() {
			put(`1`)
			put(`2`)

			count, err := driver.Count(ctx, collection)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))

			infos, err := driver.Collections(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(infos).To(ContainElement(storage.CollectionInfo{Name: collection, Count: 2}))
		})

		It("reports zero for unknown collections", func() {
			count, err := driver.Count(ctx, "missing-"+collection)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(0))
		})
	})
}
