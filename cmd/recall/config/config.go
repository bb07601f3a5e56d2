// Package configcmder provides the config command for managing persistent
// recall configuration stored in the .recall/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
)

const configLongDesc string = `Manage persistent recall configuration.

Configuration is stored as config.toml in the .recall/ directory and provides
default values for command flags. CLI flags and RECALL_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  embedding.api_key, embedding.cache_size,
  llm.provider, llm.target, llm.model, llm.api_key,
  api.listen, client.api_target,
  engine.context_window, engine.search_limit, engine.owner_lock,
  engine.redis_addr, engine.reconcile_interval, engine.reconcile_workers,
  events.provider, events.brokers, events.topic, events.nats_url

Use subcommands to get, set, or list configuration values:
  recall config set <key> <value>    Set a configuration value
  recall config get <key>            Get a configuration value
  recall config list                 List all configuration values

Examples:
  recall config set llm.provider anthropic
  recall config set vector_store.provider qdrant
  recall config get embedding.model
  recall config list`

const configShortDesc string = "Manage persistent recall configuration"

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

// printTarget reports which config file a subcommand is reading.
func printTarget(out io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
