package memorycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
)

type historyCommander struct {
	clientFlags
}

const historyLongDesc string = `Show the retirement log for an owner, oldest first.

Every superseded or forgotten memory leaves one entry naming the memory, the
memory that replaced it (if any), and the reason.

Examples:
  recall history
  recall history --owner alice`

const historyShortDesc string = "Show the retirement log"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cmder.resolve(cmd)
			if err != nil {
				return err
			}

			res, err := c.History(cmd.Context(), cmder.owner)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			if len(res.Events) == 0 {
				fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("No retired memories."))
				return nil
			}

			for _, ev := range res.Events {
				fmt.Fprintf(out, "  %s  %s  %s",
					cliui.DimStyle.Render(ev.CreatedAt.Local().Format("2006-01-02 15:04")),
					cliui.KeyStyle.Render(fmt.Sprintf("%-10s", ev.RelationshipType)),
					cliui.ValueStyle.Render(ev.MemoryID),
				)
				if ev.RelatedMemoryID != "" {
					fmt.Fprintf(out, " %s %s", cliui.DimStyle.Render("->"), cliui.ValueStyle.Render(ev.RelatedMemoryID))
				}
				fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(ev.Reason))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmder.register(cmd, false)
	return cmd
}
