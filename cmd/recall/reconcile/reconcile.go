// Package reconcilecmder provides the reconcile command, which repairs the
// similarity index from the structured store without a running server.
package reconcilecmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/coordinator"
	"github.com/papercomputeco/recall/pkg/dotdir"
	"github.com/papercomputeco/recall/pkg/engine"
	"github.com/papercomputeco/recall/pkg/logger"
)

type reconcileCommander struct {
	owner   string
	all     bool
	workers uint

	debug     bool
	configDir string
	cfg       *config.Config
}

const reconcileLongDesc string = `Reconcile the similarity index with the structured store.

The structured store is authoritative. Reconciliation re-embeds and indexes
active memories that are missing from the similarity index, and removes index
entries for memories that have been retired.

Runs in-process against the configured stores; no server is needed.

Examples:
  recall reconcile --owner alice
  recall reconcile --all
  recall reconcile --all --workers 8 --vector-store-provider qdrant`

const reconcileShortDesc string = "Repair the similarity index from the store"

func NewReconcileCmd() *cobra.Command {
	cmder := &reconcileCommander{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: reconcileShortDesc,
		Long:  reconcileLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			if cmder.all == (cmder.owner != "") {
				return errors.New("pass exactly one of --owner or --all")
			}

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, config.DriverFlagKeys)
			cmder.cfg = config.FromViper(v)

			if !cmd.Flags().Changed("workers") {
				cmder.workers = cmder.cfg.Engine.ReconcileWorkers
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.owner, "owner", "o", "", "Reconcile a single owner")
	cmd.Flags().BoolVar(&cmder.all, "all", false, "Reconcile every owner in the store")
	cmd.Flags().UintVarP(&cmder.workers, "workers", "w", 0, "Owners reconciled in parallel with --all (default: engine.reconcile_workers)")
	config.AddDriverFlags(cmd)

	return cmd
}

func (c *reconcileCommander) run(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.Nop()
	if c.debug {
		log = logger.New(logger.WithDebug(true), logger.WithPretty(true))
	}

	dataDir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}

	e, err := engine.Build(ctx, c.cfg, dataDir, log)
	if err != nil {
		return err
	}
	defer e.Close()

	fmt.Fprintln(out)
	if c.all {
		return c.reconcileAll(ctx, out, e.Coordinator)
	}
	return c.reconcileOwner(ctx, out, e.Coordinator)
}

func (c *reconcileCommander) reconcileOwner(ctx context.Context, out io.Writer, coord *coordinator.Coordinator) error {
	var report *coordinator.ReconcileReport
	err := cliui.Step(out, fmt.Sprintf("Reconciling %s", c.owner), func() error {
		var err error
		report, err = coord.Reconcile(ctx, c.owner)
		return err
	})
	if err != nil {
		return err
	}

	printCounts(out, report.Reindexed, report.Removed, report.Failed)
	return nil
}

func (c *reconcileCommander) reconcileAll(ctx context.Context, out io.Writer, coord *coordinator.Coordinator) error {
	var summary *coordinator.ReconcileSummary
	err := cliui.Step(out, "Reconciling all owners", func() error {
		var err error
		summary, err = coord.ReconcileAll(ctx, c.workers)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s %d", cliui.KeyStyle.Render("Owners:"), summary.Owners)
	if summary.FailedOwners > 0 {
		fmt.Fprintf(out, " %s", cliui.WarnStyle.Render(fmt.Sprintf("(%d failed)", summary.FailedOwners)))
	}
	fmt.Fprintln(out)
	printCounts(out, summary.Reindexed, summary.Removed, summary.Failed)
	return nil
}

func printCounts(out io.Writer, reindexed, removed, failed int) {
	fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render("Reindexed:"), reindexed)
	fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render("Removed:"), removed)
	if failed > 0 {
		fmt.Fprintf(out, "  %s %s\n", cliui.WarnMark, cliui.WarnStyle.Render(fmt.Sprintf("%d records could not be repaired", failed)))
	}
	fmt.Fprintln(out)
}
