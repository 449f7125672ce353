package records_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/papers/pkg/checkpoint"
	"github.com/papercomputeco/papers/pkg/paper"
	"github.com/papercomputeco/papers/pkg/records"
	"github.com/papercomputeco/papers/pkg/records/inmemory"
	"github.com/papercomputeco/papers/pkg/records/postgres"
	"github.com/papercomputeco/papers/pkg/records/sqlite"
)

func testRecord(id string) *paper.Record {
	return &paper.Record{
		ID:         id,
		Title:      "Title " + id,
		Abstract:   "Abstract " + id,
		Authors:    `[["Doe","J.",""]]`,
		Date:       "2020-01-02",
		Categories: "cs.LG stat.ML",
	}
}

// driverBehaviour runs the same assertions against every records.Driver.
func driverBehaviour(newDriver func(ctx context.Context) records.Driver) {
	var (
		driver records.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver(ctx)
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	It("stores and retrieves a record", func() {
		inserted, err := driver.Put(ctx, testRecord("p1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(inserted).To(BeTrue())

		got, err := driver.Get(ctx, "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(testRecord("p1")))

		exists, err := driver.Exists(ctx, "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("never overwrites an existing record", func() {
		_, err := driver.Put(ctx, testRecord("p1"))
		Expect(err).NotTo(HaveOccurred())

		changed := testRecord("p1")
		changed.Title = "Changed"
		inserted, err := driver.Put(ctx, changed)
		Expect(err).NotTo(HaveOccurred())
		Expect(inserted).To(BeFalse())

		got, err := driver.Get(ctx, "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Title).To(Equal("Title p1"))

		n, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("returns NotFoundError for unknown ids", func() {
		_, err := driver.Get(ctx, "missing")
		Expect(err).To(BeAssignableToTypeOf(records.NotFoundError{}))

		exists, err := driver.Exists(ctx, "missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})

	It("rejects records without an id", func() {
		_, err := driver.Put(ctx, &paper.Record{Title: "x"})
		Expect(err).To(HaveOccurred())

		_, err = driver.Put(ctx, nil)
		Expect(err).To(HaveOccurred())
	})

	It("batch gets present ids and omits missing ones", func() {
		for _, id := range []string{"a", "b", "c"} {
			_, err := driver.Put(ctx, testRecord(id))
			Expect(err).NotTo(HaveOccurred())
		}

		got, err := driver.BatchGet(ctx, []string{"c", "missing", "a"})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(2))
		Expect(got).To(HaveKey("a"))
		Expect(got).To(HaveKey("c"))
		Expect(got["c"].Abstract).To(Equal("Abstract c"))
	})

	It("handles empty batch gets", func() {
		got, err := driver.BatchGet(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeEmpty())
	})
}

var _ = Describe("inmemory.Driver", func() {
	driverBehaviour(func(context.Context) records.Driver {
		return inmemory.NewDriver()
	})

	It("returns copies that callers cannot mutate", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		_, err := d.Put(ctx, testRecord("p1"))
		Expect(err).NotTo(HaveOccurred())

		got, err := d.Get(ctx, "p1")
		Expect(err).NotTo(HaveOccurred())
		got.Title = "mutated"

		again, err := d.Get(ctx, "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Title).To(Equal("Title p1"))
	})
})

var _ = Describe("sqlite.Driver", func() {
	driverBehaviour(func(ctx context.Context) records.Driver {
		d, err := sqlite.NewDriver(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	It("batch gets more ids than fit in one query", func() {
		ctx := context.Background()
		d, err := sqlite.NewDriver(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		ids := make([]string, 0, 1200)
		for i := range 1200 {
			id := fmt.Sprintf("id-%04d", i)
			ids = append(ids, id)
			_, err := d.Put(ctx, testRecord(id))
			Expect(err).NotTo(HaveOccurred())
		}

		got, err := d.BatchGet(ctx, ids)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1200))
	})

	It("persists records and checkpoints to a file", func() {
		ctx := context.Background()
		dbPath := filepath.Join(GinkgoT().TempDir(), "papers.db")

		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		_, err = d.Put(ctx, testRecord("p1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(checkpoint.Save(ctx, d.Checkpoints(), checkpoint.DefaultName, 9)).To(Succeed())
		Expect(d.Close()).To(Succeed())

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())

		reopened, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		exists, err := reopened.Exists(ctx, "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())

		pos, found, err := checkpoint.Load(ctx, reopened.Checkpoints(), checkpoint.DefaultName)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(pos).To(Equal(9))
	})

	It("overwrites checkpoints in place", func() {
		ctx := context.Background()
		d, err := sqlite.NewDriver(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		store := d.Checkpoints()
		_, found, err := store.Get(ctx, checkpoint.DefaultName)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())

		Expect(store.Put(ctx, checkpoint.DefaultName, "3")).To(Succeed())
		Expect(store.Put(ctx, checkpoint.DefaultName, "5")).To(Succeed())

		value, found, err := store.Get(ctx, checkpoint.DefaultName)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(value).To(Equal("5"))
	})
})

var _ = Describe("postgres.Driver", func() {
	// connStr returns the PostgreSQL connection string from environment or skips the test.
	connStr := func() string {
		dsn := os.Getenv("PAPERS_TEST_POSTGRES_DSN")
		if dsn == "" {
			Skip("PAPERS_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
		}
		return dsn
	}

	driverBehaviour(func(ctx context.Context) records.Driver {
		d, err := postgres.NewDriver(ctx, connStr())
		Expect(err).NotTo(HaveOccurred())

		// Clean the tables before each test for isolation.
		_, err = d.DB.ExecContext(ctx, "DELETE FROM papers")
		Expect(err).NotTo(HaveOccurred())
		_, err = d.DB.ExecContext(ctx, "DELETE FROM checkpoints")
		Expect(err).NotTo(HaveOccurred())
		return d
	})
})
