// Package paideiacmder
package paideiacmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/paideialabs/paideia/cmd/paideia/chat"
	configcmder "github.com/paideialabs/paideia/cmd/paideia/config"
	initcmder "github.com/paideialabs/paideia/cmd/paideia/init"
	servecmder "github.com/paideialabs/paideia/cmd/paideia/serve"
	versioncmder "github.com/paideialabs/paideia/cmd/version"
)

const paideiaLongDesc string = `Paideia is tiered conversational memory for tutoring agents.

Run the memory engine using:
  paideia serve        Run the memory API server
  paideia chat         Interactive tutoring session against a server
  paideia config       Manage persistent configuration
  paideia init         Initialize a local .paideia/ directory`

const paideiaShortDesc string = "Paideia - Tutoring Memory Engine"

func NewPaideiaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paideia",
		Short: paideiaShortDesc,
		Long:  paideiaLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .paideia config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
