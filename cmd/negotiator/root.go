package main

import (
	"fmt"
	"metadata-negotiator/internal/accepttypes"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "negotiator",
		Short: "Content negotiation for metadata harvesting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	root.AddCommand(newFetchCommand())
	root.AddCommand(newWorkerCommand())
	root.AddCommand(newAcceptTypesCommand())

	return root
}

func newAcceptTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "accept-types",
		Short: "List the accept types and the Accept header each one sends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, at := range accepttypes.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", at, accepttypes.Value(at))
			}
		},
	}
}
