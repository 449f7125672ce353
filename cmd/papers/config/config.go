// Package configcmder provides the config command for managing persistent
// papers configuration stored in the .papers/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent papers configuration.

Configuration is stored as config.toml in the .papers/ directory and provides
default values for command flags. CLI flags and PAPERS_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  corpus.source, ingest.target_count, ingest.interval, ...

Use subcommands to get, set, or list configuration values:
  papers config set <key> <value>    Set a configuration value
  papers config get <key>            Get a configuration value
  papers config list                 List all configuration values

Examples:
  papers config set corpus.source ./arxiv-metadata-oai-snapshot.json
  papers config set ingest.target_count 25
  papers config get embedding.model
  papers config list`

const configShortDesc string = "Manage persistent papers configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
