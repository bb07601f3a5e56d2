// Package initcmder provides the init command for initializing a local
// .recall directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
)

const (
	dirName = ".recall"

	remoteFetchTimeout = 30 * time.Second
)

type initCommander struct {
	preset string
}

const initLongDesc string = `Initialize a new .recall/ directory in the current working directory.

Creates a local .recall/ directory that takes precedence over the default
~/.recall/ directory for configuration, the default SQLite databases and the
CLI session. A config.toml with default values is written unless one exists.

Use --preset to start from a provider preset (openai, anthropic, ollama) or
from a config.toml served at an http(s) URL. A preset always overwrites an
existing config.toml.

Examples:
  recall init
  recall init --preset openai
  recall init --preset https://example.com/recall/config.toml`

const initShortDesc string = "Initialize a local .recall/ directory"

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.preset, "preset", "p", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *initCommander) run(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	dir := filepath.Join(cwd, dirName)

	// Resolve the preset before touching disk so a bad preset leaves nothing behind.
	var cfg *config.Config
	if c.preset != "" {
		cfg, err = c.resolvePreset(ctx)
		if err != nil {
			return err
		}
	}

	existed := false
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		existed = true
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .recall directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg == nil {
		_, statErr := os.Stat(cfger.GetTarget())
		if statErr == nil {
			fmt.Fprintf(out, "\n  %s %s\n\n", cliui.DimStyle.Render("Already initialized:"), dir)
			return nil
		}
		if !errors.Is(statErr, os.ErrNotExist) {
			return fmt.Errorf("reading config: %w", statErr)
		}
		cfg = config.NewDefaultConfig()
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	verb := "Initialized"
	if existed {
		verb = "Updated"
	}
	fmt.Fprintf(out, "\n  %s %s %s\n", cliui.SuccessMark, verb, cliui.ValueStyle.Render(dir))
	fmt.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(cfger.GetTarget()))
	return nil
}

func (c *initCommander) resolvePreset(ctx context.Context) (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(ctx, c.preset)
	}
	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
