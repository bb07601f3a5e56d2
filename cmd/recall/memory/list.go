package memorycmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/utils"
)

type listCommander struct {
	clientFlags
	category string
	limit    int
}

const listLongDesc string = `List active memories, newest first.

Examples:
  recall list
  recall list --category tools
  recall list --limit 10`

const listShortDesc string = "List active memories"

func NewListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cmder.resolve(cmd)
			if err != nil {
				return err
			}

			res, err := c.List(cmd.Context(), cmder.owner, cmder.category, cmder.limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			if res.Count == 0 {
				fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("No memories stored."))
				return nil
			}

			for _, m := range res.Records {
				fmt.Fprintf(out, "  %s  %s  %s\n",
					cliui.DimStyle.Render(m.CreatedAt.Local().Format("2006-01-02 15:04")),
					cliui.KeyStyle.Render(fmt.Sprintf("%-14s", m.Category)),
					cliui.ValueStyle.Render(utils.Truncate(m.Content, 80)),
				)
			}
			fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("%d memories", res.Count)))
			return nil
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmder.register(cmd, false)
	cmd.Flags().StringVar(&cmder.category, "category", "", "Only list one category ("+categoryNames()+")")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 0, "Maximum number of memories (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("category", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return strings.Split(categoryNames(), ", "), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func categoryNames() string {
	cats := memory.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
