// Package searchcmder provides the search command for semantic search over
// ingested papers.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/papers/api"
	"github.com/papercomputeco/papers/pkg/cliui"
	"github.com/papercomputeco/papers/pkg/config"
	"github.com/papercomputeco/papers/pkg/logger"
	"github.com/papercomputeco/papers/pkg/paper"
	"github.com/papercomputeco/papers/pkg/retrieval"
	"github.com/papercomputeco/papers/pkg/services"
	"github.com/papercomputeco/papers/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

const (
	// previewLen bounds abstract previews when --render is not set.
	previewLen = 240
	wrapWidth  = 76
)

type searchCommander struct {
	query  string
	topK   int
	remote bool
	render bool
	text   bool
	asJSON bool

	cfg       *config.Config
	configDir string
	debug     bool
	out       io.Writer
}

const searchLongDesc string = `Search ingested papers.

Embeds the query and returns the closest papers, ranked by distance (lower is
closer) or similarity (higher is closer) depending on the vector store.

By default the search runs against the local stores. Use --remote, or pass
--api-target, to query a running papers API server instead.

Examples:
  papers search "graph neural networks for molecules"
  papers search "quantum error correction" -k 5 --render
  papers search "attention is all you need" --remote --api-target http://localhost:8081
  papers search "diffusion models" --text`

const searchShortDesc string = "Search ingested papers"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(cmd, config.Flags, append([]string{config.FlagAPITarget}, config.ServiceFlags...))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()

			if cmd.Flags().Changed("api-target") {
				cmder.remote = true
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			return cmder.run(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", retrieval.DefaultK, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.remote, "remote", "r", false, "Query the papers API server instead of the local stores")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render full abstracts as markdown")
	cmd.Flags().BoolVar(&cmder.text, "text", false, "Print plain text paper blocks")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print results as JSON")
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, new(string))
	config.AddServiceFlags(cmd)

	return cmd
}

func (c *searchCommander) run(ctx context.Context, logOut io.Writer) error {
	if strings.TrimSpace(c.query) == "" {
		return fmt.Errorf("query must not be empty")
	}
	if c.topK <= 0 {
		return fmt.Errorf("invalid -k %d: must be positive", c.topK)
	}

	var (
		results []retrieval.Result
		err     error
	)
	if c.remote {
		var output *api.SearchResponse
		output, err = SearchAPI(ctx, c.cfg.Client.APITarget, c.query, c.topK)
		if output != nil {
			results = output.Results
		}
	} else {
		results, err = c.searchLocal(ctx, logOut)
	}
	if err != nil {
		return err
	}

	switch {
	case c.asJSON:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(api.SearchResponse{Query: c.query, Results: results, Count: len(results)})
	case c.text:
		_, err := fmt.Fprint(c.out, retrieval.FormatText(results))
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(c.out, "No papers found.")
		return nil
	}

	fmt.Fprintf(c.out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search Results for:"),
		idStyle.Render(strconv.Quote(c.query)),
	)
	for i, r := range results {
		c.printResult(i+1, r)
	}
	return nil
}

func (c *searchCommander) searchLocal(ctx context.Context, logOut io.Writer) ([]retrieval.Result, error) {
	log := logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
		logger.WithSource(c.debug),
		logger.WithComponent("search"),
		logger.WithWriter(logOut),
	)

	svc, err := services.Build(ctx, &services.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	defer svc.Close()

	return svc.Engine.Search(ctx, c.query, c.topK), nil
}

func (c *searchCommander) printResult(rank int, r retrieval.Result) {
	label := "distance"
	if r.ScoreKind == retrieval.ScoreKindSimilarity {
		label = "similarity"
	}

	fmt.Fprintf(c.out, "  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("%s: %.4f", label, r.Score)),
		idStyle.Render(r.ID),
	)
	fmt.Fprintf(c.out, "  %s\n", titleStyle.Render(strings.Join(strings.Fields(r.Title), " ")))

	var meta []string
	if authors := paper.AuthorNames(r.Authors); authors != "" {
		meta = append(meta, utils.Truncate(authors, 80))
	}
	if r.Date != "" {
		meta = append(meta, r.Date)
	}
	if r.Categories != "" {
		meta = append(meta, r.Categories)
	}
	if len(meta) > 0 {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render(strings.Join(meta, " | ")))
	}

	abstract := strings.Join(strings.Fields(r.Abstract), " ")
	if c.render {
		rendered, err := cliui.RenderMarkdown(abstract)
		if err == nil {
			fmt.Fprint(c.out, rendered)
			return
		}
	}

	preview := ansi.Wordwrap(utils.Truncate(abstract, previewLen), wrapWidth, "")
	for _, line := range strings.Split(preview, "\n") {
		fmt.Fprintf(c.out, "  %s\n", previewStyle.Render(line))
	}
	fmt.Fprintln(c.out)
}

// SearchAPI calls the papers search API and returns the parsed output.
func SearchAPI(ctx context.Context, apiTarget, query string, topK int) (*api.SearchResponse, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", query)
	q.Set("top_k", strconv.Itoa(topK))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to papers API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.SearchResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
