package ingestcmder_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	ingestcmder "github.com/papercomputeco/papers/cmd/papers/ingest"
	"github.com/papercomputeco/papers/pkg/corpus"
	"github.com/papercomputeco/papers/pkg/ingest"
	"github.com/papercomputeco/papers/pkg/services"
	testutils "github.com/papercomputeco/papers/pkg/utils/test"
)

var _ = Describe("Ingest command", func() {
	var (
		tmpDir     string
		corpusPath string
		server     *httptest.Server
		stdout     *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "papers-ingest-cmd-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(tmpDir) })

		server = testutils.NewKeywordOllamaServer("graph", "quantum", "language")
		DeferCleanup(server.Close)

		corpusPath = filepath.Join(tmpDir, "arxiv.jsonl")
		lines := []string{
			`{"id":"g1","title":"Graph Networks","abstract":"Message passing on graph structures."}`,
			`{"id":"q1","title":"Quantum Supremacy","abstract":"A quantum processor outperforms classical machines."}`,
			`{"id":"l1","title":"Attention","abstract":"Language modelling with attention."}`,
		}
		Expect(os.WriteFile(corpusPath, []byte(strings.Join(lines, "\n")+"\n"), 0o600)).To(Succeed())

		stdout = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		root := &cobra.Command{Use: "papers", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().BoolP("debug", "d", false, "")
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(ingestcmder.NewIngestCmd())

		stdout.Reset()
		root.SetOut(stdout)
		root.SetErr(&bytes.Buffer{})

		base := []string{
			"--config-dir", tmpDir,
			"--embedding-target", server.URL,
			"--embedding-dimensions", "4",
		}
		// Subcommand names must precede the flags.
		split := 1
		if len(args) > 1 && (args[1] == "reset" || args[1] == "status") {
			split = 2
		}
		full := append(append(append([]string{}, args[:split]...), base...), args[split:]...)
		root.SetArgs(full)
		return root.Execute()
	}

	status := func() *ingest.Status {
		Expect(execute("ingest", "status", "--corpus", corpusPath, "--json")).To(Succeed())
		var s ingest.Status
		Expect(json.Unmarshal(stdout.Bytes(), &s)).To(Succeed())
		return &s
	}

	It("ingests a batch and reports the summary", func() {
		Expect(execute("ingest", "--corpus", corpusPath, "--count", "2")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("Ingested 2 papers. New Checkpoint: 2"))

		s := status()
		Expect(s.Found).To(BeTrue())
		Expect(s.Checkpoint).To(Equal(2))
		Expect(s.Records).To(Equal(2))
		Expect(s.Source).To(Equal("file://" + corpusPath))
	})

	It("continues from the stored checkpoint", func() {
		Expect(execute("ingest", "--corpus", corpusPath, "--count", "2")).To(Succeed())
		Expect(execute("ingest", "--corpus", corpusPath, "--count", "2")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("Ingested 1 papers. New Checkpoint: 3"))
	})

	It("resets the checkpoint and replays as duplicates", func() {
		Expect(execute("ingest", "--corpus", corpusPath, "--count", "3")).To(Succeed())
		Expect(execute("ingest", "reset", "--corpus", corpusPath)).To(Succeed())
		Expect(status().Checkpoint).To(BeZero())

		Expect(execute("ingest", "--corpus", corpusPath, "--count", "3")).To(Succeed())
		Expect(stdout.String()).To(ContainSubstring("Ingested 0 papers. New Checkpoint: 3"))
		Expect(status().Records).To(Equal(3))
	})

	It("resets to an explicit position", func() {
		Expect(execute("ingest", "reset", "--corpus", corpusPath, "1")).To(Succeed())
		Expect(status().Checkpoint).To(Equal(1))
	})

	It("rejects invalid reset positions", func() {
		Expect(execute("ingest", "reset", "--corpus", corpusPath, "abc")).To(MatchError(ContainSubstring("invalid position")))
	})

	It("requires a corpus", func() {
		err := execute("ingest", "--count", "1")
		Expect(errors.Is(err, services.ErrNoCorpus)).To(BeTrue())
	})

	It("requires an interval to watch", func() {
		err := execute("ingest", "--corpus", corpusPath, "--watch")
		Expect(err).To(MatchError(ContainSubstring("--watch requires")))
	})

	It("only follows local corpus files", func() {
		err := execute("ingest", "--corpus", "http://127.0.0.1:1/arxiv.jsonl", "--watch", "--follow")
		Expect(err).To(MatchError(corpus.ErrNotWatchable))
	})
})
