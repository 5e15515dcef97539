// Package mnemocmder
package mnemocmder

import (
	"github.com/spf13/cobra"

	recallcmder "github.com/lyrebirdhq/mnemo/cmd/mnemo/recall"
	remembercmder "github.com/lyrebirdhq/mnemo/cmd/mnemo/remember"
	servecmder "github.com/lyrebirdhq/mnemo/cmd/mnemo/serve"
	statscmder "github.com/lyrebirdhq/mnemo/cmd/mnemo/stats"
	versioncmder "github.com/lyrebirdhq/mnemo/cmd/version"
)

const mnemoLongDesc string = `Mnemo is long-term conversational memory for your agents.

Store dialogue turns, then retrieve what matters:
  mnemo remember <speaker> <text>   Index a conversation turn
  mnemo recall <query>              Retrieve a memory context block
  mnemo stats                       Show index statistics
  mnemo serve                       Run the MCP memory server`

const mnemoShortDesc string = "Mnemo - Conversational Memory"

func NewMnemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemo",
		Short: mnemoShortDesc,
		Long:  mnemoLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: current directory)")

	// Add subcommands
	cmd.AddCommand(remembercmder.NewRememberCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
