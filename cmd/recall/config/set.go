package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file
stored in the .recall/ directory. Keys use dotted notation matching
the TOML section structure. Numeric keys, engine.owner_lock and
engine.reconcile_interval are validated before saving.

Examples:
  recall config set llm.provider openai
  recall config set embedding.dimensions 1536
  recall config set engine.owner_lock redis
  recall config set engine.reconcile_interval 15m`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir)
		},
		ValidArgsFunction: completeKeys,
	}

	return cmd
}

func runSet(out io.Writer, key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(out, cfger)

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	shown := value
	if isSecret(key) {
		shown = mask(value)
	}
	fmt.Fprintf(out, "  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(shown),
	)
	return nil
}
