package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/nodebuilder"
)

// Archive constructs a CLI command to read the archive of a stopped node.
func Archive(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive [subcommand]",
		Short: "Reads archived fragments from the node store",
		Args:  cobra.NoArgs,
	}

	get := &cobra.Command{
		Use:          "get <slot> <data|coding> <index>",
		Short:        "Prints an archived fragment together with its producer",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			id, err := parseFragmentID(args)
			if err != nil {
				return err
			}

			store, err := nodebuilder.OpenStore(StorePath(ctx))
			if err != nil {
				return err
			}
			defer multierr.AppendInvoke(&err, multierr.Invoke(store.Close))

			arch, err := openArchive(store, NodeConfig(ctx))
			if err != nil {
				return err
			}

			rec, err := arch.Get(ctx, id)
			if printErr := PrintOutput(cmd.OutOrStdout(), rec, err, nil); printErr != nil {
				return printErr
			}
			return err
		},
	}
	for _, set := range fsets {
		get.Flags().AddFlagSet(set)
	}

	cmd.AddCommand(get)
	return cmd
}

func parseFragmentID(args []string) (fragment.ID, error) {
	slot, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fragment.ID{}, fmt.Errorf("cmd: invalid slot %q: %w", args[0], err)
	}
	kind, err := fragment.ParseKind(args[1])
	if err != nil {
		return fragment.ID{}, err
	}
	index, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return fragment.ID{}, fmt.Errorf("cmd: invalid index %q: %w", args[2], err)
	}
	return fragment.ID{Slot: slot, Kind: kind, Index: uint32(index)}, nil
}
