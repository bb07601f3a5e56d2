// Package usecmder provides the use command, which saves the owner and
// conversation that client commands act on by default.
package usecmder

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/dotdir"
)

type useCommander struct {
	conversation string
	clear        bool
	configDir    string
}

const useLongDesc string = `Set the owner (and optionally the conversation) for client commands.

The session is saved to session.json in the .recall/ directory. Commands such
as remember, search and chat use it whenever --owner is not given.

Without arguments, prints the current session.

Examples:
  recall use alice
  recall use alice --conversation standup-2024-05-01
  recall use
  recall use --clear`

const useShortDesc string = "Set the owner for client commands"

func NewUseCmd() *cobra.Command {
	cmder := &useCommander{}

	cmd := &cobra.Command{
		Use:   "use [owner]",
		Short: useShortDesc,
		Long:  useLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case cmder.clear:
				if len(args) > 0 {
					return errors.New("--clear takes no owner")
				}
				return cmder.runClear(out)
			case len(args) == 0:
				return cmder.runShow(out)
			default:
				return cmder.runSet(out, args[0])
			}
		},
	}

	cmd.Flags().StringVarP(&cmder.conversation, "conversation", "c", "", "Conversation ID attached to ingested messages")
	cmd.Flags().BoolVar(&cmder.clear, "clear", false, "Remove the saved session")

	return cmd
}

func (c *useCommander) runSet(out io.Writer, owner string) error {
	session := &dotdir.Session{
		OwnerID:        owner,
		ConversationID: c.conversation,
	}
	if err := dotdir.NewManager().SaveSession(session, c.configDir); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Using owner %s", cliui.SuccessMark, cliui.ValueStyle.Render(owner))
	if c.conversation != "" {
		fmt.Fprintf(out, " %s", cliui.DimStyle.Render("(conversation "+c.conversation+")"))
	}
	fmt.Fprint(out, "\n\n")
	return nil
}

func (c *useCommander) runShow(out io.Writer) error {
	session, err := dotdir.NewManager().LoadSession(c.configDir)
	if err != nil {
		return err
	}

	if session == nil {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render(`No session. Run "recall use <owner>".`))
		return nil
	}

	fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Owner:"), cliui.ValueStyle.Render(session.OwnerID))
	if session.ConversationID != "" {
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Conversation:"), cliui.ValueStyle.Render(session.ConversationID))
	}
	fmt.Fprintln(out)
	return nil
}

func (c *useCommander) runClear(out io.Writer) error {
	if err := dotdir.NewManager().ClearSession(c.configDir); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n  %s Session cleared\n\n", cliui.SuccessMark)
	return nil
}
