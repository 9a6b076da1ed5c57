// Package cmd implements the hearthd command-line interface.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hearthdesk/hearthd/logging"
)

// NewRootCmd returns the hearthd root command with subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hearthd",
		Short: "Hearth desktop backend daemon",
		Long:  "State registry, telemetry scheduler, and RPC backend for the Hearth desktop platform.",
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCallCmd())

	return cmd
}

// getLogger creates a logger honoring the root command's flags.
func getLogger(cmd *cobra.Command, component string) *logrus.Entry {
	entry := logging.NewLogger(component)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		entry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return entry
}
