// Package recallcmder is the root recall command.
package recallcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/recall/cmd/recall/auth"
	configcmder "github.com/papercomputeco/recall/cmd/recall/config"
	initcmder "github.com/papercomputeco/recall/cmd/recall/init"
	memorycmder "github.com/papercomputeco/recall/cmd/recall/memory"
	reconcilecmder "github.com/papercomputeco/recall/cmd/recall/reconcile"
	servecmder "github.com/papercomputeco/recall/cmd/recall/serve"
	usecmder "github.com/papercomputeco/recall/cmd/recall/use"
	versioncmder "github.com/papercomputeco/recall/cmd/version"
)

const recallLongDesc string = `Recall is long-term memory for conversational agents.

It extracts durable facts from user messages, keeps a structured store and a
similarity index consistent with each other, and answers questions from what
it remembers.

Run the engine:
  recall serve                 Run the API server (HTTP + MCP)
  recall reconcile --all       Repair the similarity index from the store
  recall auth <provider>       Store an API key for openai or anthropic

Talk to a running server:
  recall use <owner>           Set the owner for client commands
  recall remember <text>       Store facts from a message
  recall search <query>        Search memories and synthesize an answer
  recall forget <text>         Retire the best matching memory
  recall list                  List active memories
  recall stats                 Show counts and store sync status
  recall history               Show the retirement log
  recall chat <text>           Route a message by intent`

const recallShortDesc string = "Recall - Agent Memory"

func NewRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "recall",
		Short:         recallShortDesc,
		Long:          recallLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .recall/ directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(reconcilecmder.NewReconcileCmd())
	cmd.AddCommand(usecmder.NewUseCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(memorycmder.NewRememberCmd())
	cmd.AddCommand(memorycmder.NewSearchCmd())
	cmd.AddCommand(memorycmder.NewForgetCmd())
	cmd.AddCommand(memorycmder.NewListCmd())
	cmd.AddCommand(memorycmder.NewStatsCmd())
	cmd.AddCommand(memorycmder.NewHistoryCmd())
	cmd.AddCommand(memorycmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
