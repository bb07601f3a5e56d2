package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from the config.toml file
stored in the .recall/ directory. Keys use dotted notation matching
the TOML section structure.

Examples:
  recall config get llm.provider
  recall config get embedding.model`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(cmd.OutOrStdout(), args[0], configDir)
		},
		ValidArgsFunction: completeKeys,
	}

	return cmd
}

func runGet(out io.Writer, key, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(out, cfger)

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.DimStyle.Render("<not set>"))
	} else {
		fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(value))
	}

	return nil
}
