package memorycmder

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/memory"
)

type statsCommander struct {
	clientFlags
}

const statsLongDesc string = `Show memory statistics for an owner.

Reports active memory counts per category, the average confidence, and
whether the similarity index agrees with the structured store. A mismatch is
repaired by "recall reconcile".

Examples:
  recall stats
  recall stats --owner alice`

const statsShortDesc string = "Show counts and store sync status"

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cmder.resolve(cmd)
			if err != nil {
				return err
			}

			res, err := c.Stats(cmd.Context(), cmder.owner)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Owner:"), cliui.ValueStyle.Render(cmder.owner))
			fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render("Memories:"), res.Count)
			fmt.Fprintf(out, "  %s %.2f\n", cliui.KeyStyle.Render("Avg confidence:"), res.AvgConfidence)

			if len(res.PerCategory) > 0 {
				cats := make([]memory.Category, 0, len(res.PerCategory))
				for cat := range res.PerCategory {
					cats = append(cats, cat)
				}
				slices.Sort(cats)

				fmt.Fprintf(out, "  %s\n", cliui.KeyStyle.Render("By category:"))
				for _, cat := range cats {
					fmt.Fprintf(out, "    %-14s %d\n", cat, res.PerCategory[cat])
				}
			}

			if res.InSync {
				fmt.Fprintf(out, "\n  %s %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(fmt.Sprintf("index in sync (%d entries)", res.IndexCount)))
				return nil
			}

			warning := res.Warning
			if warning == "" {
				warning = fmt.Sprintf("index has %d entries", res.IndexCount)
			}
			fmt.Fprintf(out, "\n  %s %s\n", cliui.WarnMark, cliui.WarnStyle.Render(warning))
			fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render(`run "recall reconcile --owner `+cmder.owner+`" to repair`))
			return nil
		},
	}

	cmder.register(cmd, false)
	return cmd
}
