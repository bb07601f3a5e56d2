// Package authcmder provides the auth command for storing provider API keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/credentials"
)

type authCommander struct {
	list      bool
	remove    string
	configDir string
}

const authLongDesc string = `Store API keys for hosted model providers.

Keys are kept in credentials.toml in the .recall/ directory with 0600
permissions. When embedding.api_key or llm.api_key is empty, recall serve and
recall reconcile use the provider's environment variable, then the stored key.

Supported providers: openai, anthropic

Examples:
  recall auth openai              Prompt for an OpenAI API key
  recall auth --list              List stored credentials
  recall auth --remove openai     Remove stored OpenAI credentials
  echo $KEY | recall auth openai  Read the key from stdin`

const authShortDesc string = "Store API keys for model providers"

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case cmder.list:
				return cmder.runList(out)
			case cmder.remove != "":
				return cmder.runRemove(out, cmder.remove)
			case len(args) == 0:
				return fmt.Errorf("provider argument required\n\nSupported providers: %s",
					strings.Join(credentials.SupportedProviders(), ", "))
			default:
				return cmder.runAuth(out, cmd.InOrStdin(), args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&cmder.list, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&cmder.remove, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func (c *authCommander) runAuth(out io.Writer, in io.Reader, provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	key, err := readAPIKey(out, in, provider)
	if err != nil {
		return err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, key); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(provider),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)
	return nil
}

func (c *authCommander) runList(out io.Writer) error {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintf(out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'recall auth <provider>' to store one.\n\n")
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored credentials"))
	for _, p := range providers {
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.SuccessMark,
			cliui.KeyStyle.Render(p),
			cliui.DimStyle.Render("overridden by "+credentials.EnvVarForProvider(p)),
		)
	}
	fmt.Fprintln(out)

	return nil
}

func (c *authCommander) runRemove(out io.Writer, provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(provider))
	return nil
}

// readAPIKey prompts with hidden input when in is a terminal, and otherwise
// reads the first line.
func readAPIKey(out io.Writer, in io.Reader, provider string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "Enter API key for %s (%s): ", provider, credentials.EnvVarForProvider(provider))

		key, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(key), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
