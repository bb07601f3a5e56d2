package memorycmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/coordinator"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/utils"
)

type searchCommander struct {
	clientFlags
	limit uint
	quiet bool
}

const searchLongDesc string = `Search memories and synthesize an answer.

Finds the memories most similar to the query and asks the language model to
answer from them. Results are capped at 20.

Use --quiet to print only the matching memory contents, one per line.

Examples:
  recall search "what do I use for notes?"
  recall search "editor" --limit 10
  recall search "tools" --quiet`

const searchShortDesc string = "Search memories"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cmder.resolve(cmd)
			if err != nil {
				return err
			}

			query := joinArgs(args)
			res, err := c.Search(cmd.Context(), api.SearchRequest{
				OwnerID: cmder.owner,
				Query:   query,
				Limit:   int(cmder.limit),
			})
			if err != nil {
				return err
			}

			if cmder.quiet {
				for _, r := range res.Records {
					fmt.Fprintln(cmd.OutOrStdout(), r.Content)
				}
				return nil
			}

			printSearch(cmd.OutOrStdout(), query, res)
			return nil
		},
	}

	cmder.register(cmd, false)
	config.AddUintFlag(cmd, config.Flags, config.FlagSearchLimit, &cmder.limit)
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only matching memory contents, one per line")
	return cmd
}

func printSearch(out io.Writer, query string, res *coordinator.SearchResult) {
	fmt.Fprintf(out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search results for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", query)),
	)

	if len(res.Records) == 0 {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render(res.Response))
		return
	}

	for i, r := range res.Records {
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.RankStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.StepStyle.Render(fmt.Sprintf("similarity: %.4f", r.Similarity)),
			cliui.DimStyle.Render(string(r.Category)),
		)
		fmt.Fprintf(out, "      %s\n", cliui.ValueStyle.Render(utils.Truncate(r.Content, 100)))
	}

	fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Answer:"), res.Response)
	if res.StaleDropped > 0 {
		fmt.Fprintf(out, "  %s %s\n", cliui.WarnMark,
			cliui.WarnStyle.Render(fmt.Sprintf("%d stale index entries skipped; run recall reconcile", res.StaleDropped)))
	}
	fmt.Fprintln(out)
}
