package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pnathan/pagestore/storage"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pagestore",
		Short: "Inspect and exercise a pagestore page file and buffer pool",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: env PAGESTORE_* only)")

	root.AddCommand(newCreateCmd())
	root.AddCommand(newDemoCmd())
	return root
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <file>",
		Short: "Create a new page file containing one blank page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.Create(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
			return nil
		},
	}
}

func Execute() error {
	return newRootCmd().Execute()
}
