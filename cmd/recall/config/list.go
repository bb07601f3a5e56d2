package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays all configuration keys and their current values from the
config.toml file stored in the .recall/ directory. API keys are masked.

Examples:
  recall config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(out io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(out, "Using config file: %s\n\n", target)
	} else {
		fmt.Fprint(out, "No config file found. Using default config.\n\n")
	}

	keys := config.ValidConfigKeys()

	maxLen := 0
	for _, k := range keys {
		maxLen = max(maxLen, len(k))
	}

	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		switch {
		case value == "":
			fmt.Fprintf(out, "%-*s = <not set>\n", maxLen, key)
		case isSecret(key):
			fmt.Fprintf(out, "%-*s = %q\n", maxLen, key, mask(value))
		default:
			fmt.Fprintf(out, "%-*s = %q\n", maxLen, key, value)
		}
	}

	return nil
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, ".api_key") || strings.HasSuffix(key, "_dsn")
}

// mask keeps the last four characters of a secret.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}
