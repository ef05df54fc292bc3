// Package docqcmder
package docqcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/docq/cmd/docq/config"
	initcmder "github.com/papercomputeco/docq/cmd/docq/init"
	querycmder "github.com/papercomputeco/docq/cmd/docq/query"
	seedcmder "github.com/papercomputeco/docq/cmd/docq/seed"
	servecmder "github.com/papercomputeco/docq/cmd/docq/serve"
	versioncmder "github.com/papercomputeco/docq/cmd/version"
)

const docqLongDesc string = `docq stores JSON documents and answers SELECT DISTINCT VALUE queries
over them with resumable continuation tokens.

Run the server and query it using:
  docq serve                              Run the API server
  docq seed --collection people           Upload demo documents
  docq query people --path city           Stream distinct values`

const docqShortDesc string = "docq - distinct document queries"

func NewDocqCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docq",
		Short: docqShortDesc,
		Long:  docqLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .docq/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
