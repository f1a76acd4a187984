// Package configcmder provides the config command for managing persistent
// paideia configuration stored in the .paideia/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent paideia configuration.

Configuration is stored as config.toml in the .paideia/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen,
  cache.provider, cache.path,
  docstore.provider, docstore.sqlite_path, docstore.postgres_url,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  completion.provider, completion.target, completion.model,
  memory.token_budget, memory.keep_recent,
  assembler.char_budget,
  router.model, router.roster_path,
  knowledge.provider, knowledge.path,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  paideia config set <key> <value>    Set a configuration value
  paideia config get <key>            Get a configuration value
  paideia config list                 List all configuration values
  paideia config preset <name>        Write a provider preset

Examples:
  paideia config set completion.provider anthropic
  paideia config set embedding.model nomic-embed-text
  paideia config get completion.provider
  paideia config list`

const configShortDesc string = "Manage persistent paideia configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPresetCmd())

	return cmd
}
