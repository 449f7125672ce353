package searchcmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/papers/api"
	searchcmder "github.com/papercomputeco/papers/cmd/papers/search"
	"github.com/papercomputeco/papers/pkg/config"
	"github.com/papercomputeco/papers/pkg/logger"
	"github.com/papercomputeco/papers/pkg/retrieval"
	"github.com/papercomputeco/papers/pkg/services"
	testutils "github.com/papercomputeco/papers/pkg/utils/test"
)

func execute(stdout *bytes.Buffer, args ...string) error {
	root := &cobra.Command{Use: "papers", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().BoolP("debug", "d", false, "")
	root.PersistentFlags().String("config-dir", "", "")
	root.AddCommand(searchcmder.NewSearchCmd())

	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"search"}, args...))
	return root.Execute()
}

var _ = Describe("Search command against local stores", func() {
	var (
		tmpDir string
		server *httptest.Server
		stdout *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "papers-search-cmd-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(tmpDir) })

		server = testutils.NewKeywordOllamaServer("graph", "quantum", "language")
		DeferCleanup(server.Close)

		corpusPath := filepath.Join(tmpDir, "arxiv.jsonl")
		lines := []string{
			`{"id":"g1","title":"Graph Networks","abstract":"Message passing on graph structures.","authors_parsed":[["Battaglia","Peter",""]],"update_date":"2018-06-04","categories":"cs.LG"}`,
			`{"id":"q1","title":"Quantum Supremacy","abstract":"A quantum processor outperforms classical machines.","authors_parsed":[["Arute","Frank",""]],"update_date":"2019-10-23","categories":"quant-ph"}`,
		}
		Expect(os.WriteFile(corpusPath, []byte(strings.Join(lines, "\n")+"\n"), 0o600)).To(Succeed())

		cfg := config.NewDefaultConfig()
		cfg.Embedding.Target = server.URL
		cfg.Embedding.Dimensions = 4
		cfg.Corpus.Source = corpusPath

		ctx := context.Background()
		svc, err := services.Build(ctx, &services.Options{Config: cfg, ConfigDir: tmpDir, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		pipeline, err := svc.Pipeline()
		Expect(err).NotTo(HaveOccurred())
		_, err = pipeline.RunBatch(ctx, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.Close()).To(Succeed())

		stdout = &bytes.Buffer{}
	})

	search := func(args ...string) error {
		base := []string{
			"--config-dir", tmpDir,
			"--embedding-target", server.URL,
			"--embedding-dimensions", "4",
		}
		return execute(stdout, append(base, args...)...)
	}

	It("returns the closest papers as JSON", func() {
		Expect(search("quantum computers", "-k", "2", "--json")).To(Succeed())

		var out api.SearchResponse
		Expect(json.Unmarshal(stdout.Bytes(), &out)).To(Succeed())
		Expect(out.Query).To(Equal("quantum computers"))
		Expect(out.Count).To(Equal(2))
		Expect(out.Results[0].ID).To(Equal("q1"))
		Expect(out.Results[0].ScoreKind).To(Equal(retrieval.ScoreKindDistance))
	})

	It("prints styled results", func() {
		Expect(search("graph learning", "-k", "1")).To(Succeed())
		plain := ansi.Strip(stdout.String())
		Expect(plain).To(ContainSubstring("#1  distance: "))
		Expect(plain).To(ContainSubstring("Graph Networks"))
		Expect(plain).To(ContainSubstring("Peter Battaglia | 2018-06-04 | cs.LG"))
		Expect(plain).To(ContainSubstring("  Message passing on graph structures.\n"))
	})

	It("prints plain text paper blocks", func() {
		Expect(search("quantum", "-k", "1", "--text")).To(Succeed())
		Expect(stdout.String()).To(HavePrefix("Paper 1\n[Distance: "))
		Expect(stdout.String()).To(ContainSubstring("Title: Quantum Supremacy"))
	})

	It("rejects non-positive k", func() {
		Expect(search("quantum", "-k", "0")).To(MatchError(ContainSubstring("must be positive")))
	})

	It("rejects blank queries", func() {
		Expect(search("   ")).To(MatchError(ContainSubstring("must not be empty")))
	})
})

var _ = Describe("Search command against the API", func() {
	var stdout *bytes.Buffer

	BeforeEach(func() {
		stdout = &bytes.Buffer{}
	})

	It("queries the search endpoint", func() {
		var gotQuery, gotTopK string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/search"))
			gotQuery = r.URL.Query().Get("query")
			gotTopK = r.URL.Query().Get("top_k")
			_ = json.NewEncoder(w).Encode(api.SearchResponse{
				Query: gotQuery,
				Results: []retrieval.Result{
					{ID: "p7", Title: "Q-Net", Score: 0.91, ScoreKind: retrieval.ScoreKindSimilarity},
				},
				Count: 1,
			})
		}))
		defer server.Close()

		Expect(execute(stdout, "--api-target", server.URL, "q-learning", "-k", "2")).To(Succeed())
		Expect(gotQuery).To(Equal("q-learning"))
		Expect(gotTopK).To(Equal("2"))
		Expect(stdout.String()).To(ContainSubstring("similarity: 0.9100"))
		Expect(stdout.String()).To(ContainSubstring("Q-Net"))
	})

	It("reports no results", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(api.SearchResponse{Query: "x", Results: []retrieval.Result{}})
		}))
		defer server.Close()

		Expect(execute(stdout, "--api-target", server.URL, "nothing")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("No papers found."))
	})

	It("surfaces HTTP errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"retrieval is not configured"}`, http.StatusServiceUnavailable)
		}))
		defer server.Close()

		err := execute(stdout, "--api-target", server.URL, "anything")
		Expect(err).To(MatchError(ContainSubstring("HTTP 503")))
	})
})
