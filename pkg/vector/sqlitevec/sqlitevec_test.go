package sqlitevec_test

import (
	"context"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/papers/pkg/logger"
	"github.com/papercomputeco/papers/pkg/vector"
	"github.com/papercomputeco/papers/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).To(HaveOccurred())
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("Upsert and Query", func() {
		var (
			driver *sqlitevec.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing when given no records", func() {
			Expect(driver.Upsert(ctx, nil)).To(Succeed())
		})

		It("returns nearest records first with distances and metadata", func() {
			Expect(driver.Upsert(ctx, []vector.Record{
				{Key: "far", Embedding: []float32{0, 0, 0, 1}, Metadata: map[string]string{"category": "math.CO"}},
				{Key: "near", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]string{"category": "cs.LG", "year": "2020"}},
				{Key: "mid", Embedding: []float32{0.7, 0.7, 0, 0}},
			})).To(Succeed())

			matches, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))

			Expect(matches[0].Key).To(Equal("near"))
			Expect(matches[0].Distance).NotTo(BeNil())
			Expect(*matches[0].Distance).To(BeNumerically("~", 0, 1e-6))
			Expect(matches[0].Score).To(BeNil())
			Expect(matches[0].Metadata).To(HaveKeyWithValue("year", "2020"))

			Expect(matches[1].Key).To(Equal("mid"))
			Expect(*matches[1].Distance).To(BeNumerically(">", *matches[0].Distance))
		})

		It("replaces the vector of an existing key instead of duplicating it", func() {
			Expect(driver.Upsert(ctx, []vector.Record{
				{Key: "p1", Embedding: []float32{0, 0, 0, 1}},
			})).To(Succeed())
			Expect(driver.Upsert(ctx, []vector.Record{
				{Key: "p1", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]string{"category": "cs.AI"}},
			})).To(Succeed())

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			matches, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(*matches[0].Distance).To(BeNumerically("~", 0, 1e-6))
			Expect(matches[0].Metadata).To(HaveKeyWithValue("category", "cs.AI"))
		})

		It("rejects vectors of the wrong dimension", func() {
			err := driver.Upsert(ctx, []vector.Record{{Key: "p1", Embedding: []float32{1, 2}}})
			Expect(errors.Is(err, vector.ErrDimensions)).To(BeTrue())

			_, err = driver.Query(ctx, []float32{1}, 3)
			Expect(errors.Is(err, vector.ErrDimensions)).To(BeTrue())
		})

		It("rejects records without a key", func() {
			err := driver.Upsert(ctx, []vector.Record{{Embedding: []float32{1, 0, 0, 0}}})
			Expect(err).To(HaveOccurred())
		})

		It("returns nothing from an empty index", func() {
			matches, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})
	})
})
