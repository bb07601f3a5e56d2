package memorycmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/coordinator"
	"github.com/papercomputeco/recall/pkg/memory"
)

type rememberCommander struct {
	clientFlags
}

const rememberLongDesc string = `Send a message through the memory pipeline.

The engine compares the message against recent memories and decides whether
to add a new fact, update (retire and replace) an existing one, or ignore it.

Examples:
  recall remember "I switched from Notion to Obsidian for notes"
  recall remember --owner alice "My favorite editor is Helix"`

const rememberShortDesc string = "Store facts from a message"

func NewRememberCmd() *cobra.Command {
	cmder := &rememberCommander{}

	cmd := &cobra.Command{
		Use:   "remember <text>",
		Short: rememberShortDesc,
		Long:  rememberLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cmder.resolve(cmd)
			if err != nil {
				return err
			}

			res, err := c.Remember(cmd.Context(), api.ExtractRequest{
				OwnerID:        cmder.owner,
				Text:           joinArgs(args),
				ConversationID: cmder.conversation,
			})
			if err != nil {
				return err
			}

			printIngest(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmder.register(cmd, true)
	return cmd
}

func printIngest(out io.Writer, res *coordinator.IngestResult) {
	fmt.Fprintln(out)
	if res.ExtractedCount == 0 {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Nothing new to remember."))
		return
	}

	for _, m := range res.Records {
		fmt.Fprintf(out, "  %s %s %s\n",
			cliui.SuccessMark,
			cliui.ValueStyle.Render(m.Content),
			cliui.DimStyle.Render(fmt.Sprintf("[%s]", m.Category)),
		)
	}
	if res.Action == memory.ActionUpdate && res.RetiredID != "" {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.DimStyle.Render("replaces"),
			cliui.DimStyle.Render(res.RetiredID),
		)
	}
	if res.Fallback {
		fmt.Fprintf(out, "  %s %s\n", cliui.WarnMark, cliui.WarnStyle.Render("language model unavailable, stored the message as-is"))
	}
	fmt.Fprintln(out)
}
