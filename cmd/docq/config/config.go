// Package configcmder provides the config command for managing persistent
// docq configuration stored in the .docq/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docq/pkg/cliui"
	"github.com/papercomputeco/docq/pkg/config"
)

const configLongDesc string = `Manage persistent docq configuration.

Configuration is stored as config.toml in the .docq/ directory and provides
default values for command flags. CLI flags and DOCQ_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path, storage.postgres_dsn,
  api.listen, api.max_item_count, api.mcp, api.metrics,
  client.api_target,
  query.distinct, query.max_item_count,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  ingest.async, ingest.workers, ingest.queue_size

Use subcommands to get, set, or list configuration values:
  docq config set <key> <value>    Set a configuration value
  docq config get <key>            Get a configuration value
  docq config list                 List all configuration values

Examples:
  docq config set storage.sqlite_path ./docq.db
  docq config set query.distinct ordered
  docq config get api.listen
  docq config list`

const configShortDesc string = "Manage persistent docq configuration"

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

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
