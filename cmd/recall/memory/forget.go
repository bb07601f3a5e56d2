package memorycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/cliui"
)

type forgetCommander struct {
	clientFlags
	reason string
}

const forgetLongDesc string = `Forget the memory that best matches the given text.

The memory is retired, not erased: it disappears from search and listings and
the retirement is recorded in the owner's history.

Examples:
  recall forget "my old job at Initech"
  recall forget "Notion" --reason "stopped using it"`

const forgetShortDesc string = "Retire the best matching memory"

func NewForgetCmd() *cobra.Command {
	cmder := &forgetCommander{}

	cmd := &cobra.Command{
		Use:   "forget <text>",
		Short: forgetShortDesc,
		Long:  forgetLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cmder.resolve(cmd)
			if err != nil {
				return err
			}

			res, err := c.Forget(cmd.Context(), api.DeleteRequest{
				OwnerID: cmder.owner,
				Text:    joinArgs(args),
				Reason:  cmder.reason,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s Forgot %s\n  %s\n\n",
				cliui.SuccessMark,
				cliui.ValueStyle.Render(res.DeletedContent),
				cliui.DimStyle.Render(fmt.Sprintf("%s (%s)", res.DeletedID, res.Reason)),
			)
			return nil
		},
	}

	cmder.register(cmd, false)
	cmd.Flags().StringVarP(&cmder.reason, "reason", "r", "", `Why the memory is retired (default: "user request")`)
	return cmd
}
