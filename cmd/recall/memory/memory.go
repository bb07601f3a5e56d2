// Package memorycmder provides the client commands that talk to a running
// recall API server: remember, search, forget, list, stats, history and chat.
package memorycmder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api/client"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/dotdir"
)

// errNoOwner is returned when neither --owner nor a saved session names
// the owner to act on.
var errNoOwner = errors.New(`no owner: pass --owner or run "recall use <owner>"`)

// clientFlags are shared by every client command.
type clientFlags struct {
	apiTarget    string
	owner        string
	conversation string
}

func (f *clientFlags) register(cmd *cobra.Command, withConversation bool) {
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &f.apiTarget)
	cmd.Flags().StringVarP(&f.owner, "owner", "o", "", "Owner whose memories to act on (default: the saved session)")
	if withConversation {
		cmd.Flags().StringVarP(&f.conversation, "conversation", "c", "", "Conversation ID to attach (default: the saved session)")
	}
}

// resolve fills unset values from config.toml and the saved session, and
// returns a client for the API target.
func (f *clientFlags) resolve(cmd *cobra.Command) (*client.Client, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	if !cmd.Flags().Changed("api-target") {
		cfger, err := config.NewConfiger(configDir)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg, err := cfger.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		f.apiTarget = cfg.Client.APITarget
	}

	if f.owner == "" || f.conversation == "" {
		session, err := dotdir.NewManager().LoadSession(configDir)
		if err != nil {
			return nil, err
		}
		if session != nil {
			if f.owner == "" {
				f.owner = session.OwnerID
			}
			if f.conversation == "" && f.owner == session.OwnerID {
				f.conversation = session.ConversationID
			}
		}
	}

	if f.owner == "" {
		return nil, errNoOwner
	}

	return client.New(f.apiTarget)
}

// joinArgs turns the positional words of a command into one message.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
