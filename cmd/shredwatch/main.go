package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/shredwatch/shredwatch-node/cmd"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shredwatch [subcommand]",
		Short: "Samples fragment availability of a ledger and archives what verifies",
		Args:  cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: false,
		},
		PersistentPreRunE: cmd.PersistentPreRunEnv,
	}

	root.AddCommand(
		cmd.Init(cmd.Flags()...),
		cmd.Start(cmd.Flags()...),
		cmd.Pull(cmd.Flags()...),
		cmd.Archive(cmd.Flags()...),
		cmd.ConfigUpdate(cmd.Flags()...),
		newVersionCmd(),
	)
	root.SetHelpCommand(&cobra.Command{})
	return root
}

func main() {
	err := run()
	if err != nil {
		os.Exit(1)
	}
}

func run() error {
	return rootCmd.ExecuteContext(context.Background())
}
