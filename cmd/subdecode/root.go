package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Resinat/subdecode/internal/buildinfo"
)

// newRootCommand builds the subdecode command tree.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "subdecode",
		Short:        "Fetch and decode proxy subscriptions into structured nodes",
		Version:      buildinfo.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(NewParseCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "subdecode %s (commit %s, built %s)\n",
				buildinfo.Version, buildinfo.GitCommit, buildinfo.BuildTime)
		},
	}
}
