// Package versioncmder
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/utils"
)

type VersionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of the recall CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	return cmd
}

func (c *VersionCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Version:"), utils.Version)
	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Sha:"), utils.Sha)
	fmt.Fprintf(out, "%s %s\n", cliui.KeyStyle.Render("Built at:"), utils.Buildtime)
	return nil
}
