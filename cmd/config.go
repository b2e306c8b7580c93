package cmd

import (
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/shredwatch/shredwatch-node/nodebuilder"
)

// ConfigUpdate constructs a CLI command that merges new default values into
// the config of an existing store.
func ConfigUpdate(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config-update",
		Short: "Updates the node's outdated config with default values from newly-added fields.",
		Long: `Updates the node's outdated config with default values from newly-added fields.
Values already set in the config are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return nodebuilder.UpdateConfig(StorePath(cmd.Context()))
		},
	}
	for _, set := range fsets {
		cmd.Flags().AddFlagSet(set)
	}
	return cmd
}
