// Package paperscmder
package paperscmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/papers/cmd/papers/config"
	ingestcmder "github.com/papercomputeco/papers/cmd/papers/ingest"
	searchcmder "github.com/papercomputeco/papers/cmd/papers/search"
	servecmder "github.com/papercomputeco/papers/cmd/papers/serve"
	versioncmder "github.com/papercomputeco/papers/cmd/version"
)

const papersLongDesc string = `Papers is semantic search over the arXiv corpus.

It ingests a rolling window of the arXiv metadata snapshot into a vector index
and a record store, and answers natural language queries with the closest papers.

  papers ingest          Ingest the next batch of papers
  papers search <query>  Search ingested papers
  papers serve           Run the API server, MCP endpoint and scheduler
  papers config          Manage persistent configuration`

const papersShortDesc string = "Papers - arXiv semantic search"

func NewPapersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "papers",
		Short:        papersShortDesc,
		Long:         papersLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .papers/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
