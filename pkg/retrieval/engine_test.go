package retrieval_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/papers/pkg/logger"
	"github.com/papercomputeco/papers/pkg/paper"
	"github.com/papercomputeco/papers/pkg/records"
	"github.com/papercomputeco/papers/pkg/records/inmemory"
	"github.com/papercomputeco/papers/pkg/retrieval"
	testutils "github.com/papercomputeco/papers/pkg/utils/test"
	"github.com/papercomputeco/papers/pkg/vector"
)

// failingRecords wraps a records.Driver and fails every BatchGet.
type failingRecords struct {
	records.Driver
}

func (failingRecords) BatchGet(context.Context, []string) (map[string]*paper.Record, error) {
	return nil, errors.New("table unavailable")
}

var _ = Describe("Engine", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		vectors  *testutils.MockVectorDriver
		store    *inmemory.Driver
		engine   *retrieval.Engine
	)

	put := func(id, title string) {
		_, err := store.Put(ctx, &paper.Record{
			ID:         id,
			Title:      title,
			Abstract:   "abstract of " + id,
			Authors:    `[["Doe","J.",""]]`,
			Date:       "2021-05-01",
			Categories: "cs.LG stat.ML",
		})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		vectors = testutils.NewMockVectorDriver()
		store = inmemory.NewDriver()

		var err error
		engine, err = retrieval.NewEngine(&retrieval.Config{
			Embedder: embedder,
			Vectors:  vectors,
			Records:  store,
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires its collaborators", func() {
		_, err := retrieval.NewEngine(&retrieval.Config{Vectors: vectors, Records: store})
		Expect(err).To(HaveOccurred())
		_, err = retrieval.NewEngine(&retrieval.Config{Embedder: embedder, Records: store})
		Expect(err).To(HaveOccurred())
		_, err = retrieval.NewEngine(&retrieval.Config{Embedder: embedder, Vectors: vectors})
		Expect(err).To(HaveOccurred())
	})

	It("returns results in the index's rank order", func() {
		put("a", "Alpha")
		put("b", "Beta")
		put("c", "Gamma")
		vectors.Results = []vector.Match{
			{Key: "c", Distance: vector.Float32(0.1)},
			{Key: "a", Distance: vector.Float32(0.2)},
			{Key: "b", Distance: vector.Float32(0.3)},
		}

		results := engine.Search(ctx, "transformers", 3)
		Expect(results).To(HaveLen(3))
		Expect(results[0].ID).To(Equal("c"))
		Expect(results[0].Title).To(Equal("Gamma"))
		Expect(results[1].ID).To(Equal("a"))
		Expect(results[2].ID).To(Equal("b"))
		Expect(results[0].Score).To(BeNumerically("~", 0.1, 1e-6))
		Expect(results[0].ScoreKind).To(Equal(retrieval.ScoreKindDistance))
		Expect(results[0].Categories).To(Equal("cs.LG stat.ML"))
		Expect(embedder.Calls).To(Equal([]string{"transformers"}))
	})

	It("ranks ingested vectors by distance", func() {
		put("near", "Near")
		put("far", "Far")
		embedder.Embeddings["query"] = []float32{1, 0, 0}
		Expect(vectors.Upsert(ctx, []vector.Record{
			{Key: "far", Embedding: []float32{0, 1, 0}},
			{Key: "near", Embedding: []float32{0.9, 0.1, 0}},
		})).To(Succeed())

		results := engine.Search(ctx, "query", 2)
		Expect(results).To(HaveLen(2))
		Expect(results[0].ID).To(Equal("near"))
		Expect(results[1].ID).To(Equal("far"))
	})

	It("reports similarity scores when the index has no distance", func() {
		_, err := store.Put(ctx, &paper.Record{ID: "p7", Title: "Q-Net", Abstract: "deep q learning", Date: "2015-02-26"})
		Expect(err).NotTo(HaveOccurred())
		vectors.Results = []vector.Match{{Key: "p7", Score: vector.Float32(0.91)}}

		results := engine.Search(ctx, "reinforcement learning", 1)
		Expect(results).To(HaveLen(1))
		Expect(results[0].ID).To(Equal("p7"))
		Expect(results[0].Title).To(Equal("Q-Net"))
		Expect(results[0].Score).To(BeNumerically("~", 0.91, 1e-6))
		Expect(results[0].ScoreKind).To(Equal(retrieval.ScoreKindSimilarity))
	})

	It("prefers distance over score when both are reported", func() {
		put("a", "Alpha")
		vectors.Results = []vector.Match{{Key: "a", Distance: vector.Float32(0.25), Score: vector.Float32(0.75)}}

		results := engine.Search(ctx, "q", 1)
		Expect(results).To(HaveLen(1))
		Expect(results[0].Score).To(BeNumerically("~", 0.25, 1e-6))
		Expect(results[0].ScoreKind).To(Equal(retrieval.ScoreKindDistance))
	})

	It("reports a zero score when the index reports neither", func() {
		put("a", "Alpha")
		vectors.Results = []vector.Match{{Key: "a"}}

		results := engine.Search(ctx, "q", 1)
		Expect(results).To(HaveLen(1))
		Expect(results[0].Score).To(BeZero())
	})

	It("defaults k when it is not positive", func() {
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			put(id, id)
			Expect(vectors.Upsert(ctx, []vector.Record{{Key: id, Embedding: []float32{0.1, 0.2, 0.3}}})).To(Succeed())
		}

		results := engine.Search(ctx, "q", 0)
		Expect(vectors.LastTopK).To(Equal(retrieval.DefaultK))
		Expect(results).To(HaveLen(retrieval.DefaultK))

		engine.Search(ctx, "q", -4)
		Expect(vectors.LastTopK).To(Equal(retrieval.DefaultK))
	})

	It("omits matches without a record", func() {
		put("a", "Alpha")
		put("c", "Gamma")
		vectors.Results = []vector.Match{
			{Key: "a", Distance: vector.Float32(0.1)},
			{Key: "ghost", Distance: vector.Float32(0.2)},
			{Key: "c", Distance: vector.Float32(0.3)},
		}

		results := engine.Search(ctx, "q", 3)
		Expect(results).To(HaveLen(2))
		Expect(results[0].ID).To(Equal("a"))
		Expect(results[1].ID).To(Equal("c"))
	})

	It("returns an empty list when nothing matches", func() {
		results := engine.Search(ctx, "q", 3)
		Expect(results).NotTo(BeNil())
		Expect(results).To(BeEmpty())
	})

	It("returns an empty list for a blank query without embedding", func() {
		Expect(engine.Search(ctx, "   ", 3)).To(BeEmpty())
		Expect(embedder.CallCount()).To(BeZero())
	})

	It("returns an empty list when embedding fails", func() {
		put("a", "Alpha")
		vectors.Results = []vector.Match{{Key: "a", Distance: vector.Float32(0.1)}}
		embedder.Err = errors.New("model offline")

		results := engine.Search(ctx, "q", 3)
		Expect(results).NotTo(BeNil())
		Expect(results).To(BeEmpty())
	})

	It("returns an empty list when the vector query fails", func() {
		put("a", "Alpha")
		vectors.FailQuery = true
		Expect(engine.Search(ctx, "q", 3)).To(BeEmpty())
	})

	It("returns an empty list when the record lookup fails", func() {
		put("a", "Alpha")
		vectors.Results = []vector.Match{{Key: "a", Distance: vector.Float32(0.1)}}

		failing, err := retrieval.NewEngine(&retrieval.Config{
			Embedder: embedder,
			Vectors:  vectors,
			Records:  failingRecords{Driver: store},
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		results := failing.Search(ctx, "q", 3)
		Expect(results).NotTo(BeNil())
		Expect(results).To(BeEmpty())
	})
})

var _ = Describe("FormatText", func() {
	It("numbers papers in rank order", func() {
		text := retrieval.FormatText([]retrieval.Result{
			{ID: "a", Title: "First", Date: "2020-01-01", Authors: "[]", Abstract: " one ", Score: 0.12345, ScoreKind: retrieval.ScoreKindDistance},
			{ID: "b", Title: "Second", Score: 0.9, ScoreKind: retrieval.ScoreKindSimilarity},
		})

		Expect(text).To(ContainSubstring("Paper 1\n[Distance: 0.1235]\nTitle: First\nDate: 2020-01-01\nAuthors: []\nAbstract: one\n--------------------\n"))
		Expect(text).To(ContainSubstring("Paper 2\n[Similarity: 0.9000]\nTitle: Second\n"))
		Expect(text).To(MatchRegexp(`(?s)Paper 1.*Paper 2`))
	})

	It("says so when there are no results", func() {
		Expect(retrieval.FormatText(nil)).To(Equal("No papers found."))
	})
})
