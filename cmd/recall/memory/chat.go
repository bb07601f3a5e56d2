package memorycmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/api/client"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/memory"
)

var (
	userPrompt   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	recallPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("recall> ")
	intentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

type chatCommander struct {
	clientFlags
	raw bool
}

const chatLongDesc string = `Chat with the memory engine.

Each message is classified: statements about yourself are remembered,
questions about what you told it are answered from memory, and anything else
gets a short conversational reply.

With text arguments, sends one message and exits. Without arguments, starts an
interactive session; type /exit or press Ctrl+D to quit.

Examples:
  recall chat "I started learning Rust last month"
  recall chat "what languages am I learning?"
  recall chat --owner alice`

const chatShortDesc string = "Route a message by intent"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [text]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cmder.resolve(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				return cmder.send(cmd.Context(), out, c, joinArgs(args))
			}
			return cmder.interactive(cmd.Context(), cmd.InOrStdin(), out, c)
		},
	}

	cmder.register(cmd, true)
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print replies without markdown rendering")
	return cmd
}

func (c *chatCommander) interactive(ctx context.Context, in io.Reader, out io.Writer, cl *client.Client) error {
	fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Owner:"), cliui.ValueStyle.Render(c.owner))
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if err := c.send(ctx, out, cl, input); err != nil {
			fmt.Fprintf(out, "  %s %v\n\n", cliui.FailMark, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

func (c *chatCommander) send(ctx context.Context, out io.Writer, cl *client.Client, text string) error {
	res, err := cl.Chat(ctx, api.ExtractRequest{
		OwnerID:        c.owner,
		Text:           text,
		ConversationID: c.conversation,
	})
	if err != nil {
		return err
	}

	reply := res.Response
	if !c.raw {
		if rendered, err := cliui.RenderMarkdown(reply); err == nil {
			reply = strings.TrimSpace(rendered)
		}
	}

	fmt.Fprintf(out, "%s%s %s\n", recallPrompt, reply, intentStyle.Render("("+intentLabel(res.Intent)+")"))
	fmt.Fprintln(out)
	return nil
}

func intentLabel(i memory.Intent) string {
	switch i {
	case memory.IntentMemorySharing:
		return "remembered"
	case memory.IntentMemoryQuestion:
		return "from memory"
	default:
		return "chat"
	}
}
