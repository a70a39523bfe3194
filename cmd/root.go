// Package cmd implements the shadowhtml CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root shadowhtml command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shadowhtml",
		Short:         "shadowhtml - declarative streaming HTML rewriter and data harvester",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(NewRunCmd())
	root.AddCommand(NewSchemaCmd())
	return root
}
