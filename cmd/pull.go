package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/shredwatch/shredwatch-node/archive"
	"github.com/shredwatch/shredwatch-node/das"
	"github.com/shredwatch/shredwatch-node/health"
	"github.com/shredwatch/shredwatch-node/ledger"
	"github.com/shredwatch/shredwatch-node/libs/utils"
	"github.com/shredwatch/shredwatch-node/nodebuilder"
)

var archiveFlag = "archive"

// ErrUnverified is returned by pull when a fetched fragment failed verification.
var ErrUnverified = errors.New("cmd: not every fetched fragment verified")

// Pull constructs a CLI command that samples and verifies a single slot once.
func Pull(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pull <slot>",
		Short:        "Samples and verifies the fragments of a single slot",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			cfg := NodeConfig(ctx)

			slot, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("cmd: invalid slot %q: %w", args[0], err)
			}
			store, err := cmd.Flags().GetBool(archiveFlag)
			if err != nil {
				return err
			}

			addr, err := cfg.Ledger.Endpoint()
			if err != nil {
				return err
			}
			client, err := ledger.NewClient(ctx, addr, cfg.Ledger.WSURL, cfg.Ledger.Commitment)
			if err != nil {
				return err
			}
			defer client.Close()

			var arch das.Archive
			if store {
				nodeStore, openErr := nodebuilder.OpenStore(StorePath(ctx))
				if openErr != nil {
					return openErr
				}
				defer multierr.AppendInvoke(&err, multierr.Invoke(nodeStore.Close))

				arch, err = openArchive(nodeStore, cfg)
				if err != nil {
					return err
				}
			}

			daser, err := das.NewDASer(client, arch, health.NewTracker("pulling a single slot"),
				das.WithSampleSize(cfg.DASer.SampleSize),
				das.WithVerifyWorkers(cfg.DASer.VerifyWorkers),
				das.WithRequestTimeout(cfg.DASer.RequestTimeout),
			)
			if err != nil {
				return err
			}
			defer multierr.AppendInvoke(&err, multierr.Invoke(func() error {
				return daser.Stop(utils.ResetContextOnError(ctx))
			}))

			res, err := daser.PullAndVerify(ctx, slot, store)
			if printErr := PrintOutput(cmd.OutOrStdout(), res, err, nil); printErr != nil {
				return printErr
			}
			if err != nil {
				return err
			}
			if !res.AllVerified() {
				return ErrUnverified
			}
			return nil
		},
	}
	cmd.Flags().Bool(archiveFlag, false, "Archives verified fragments into the node store")
	for _, set := range fsets {
		cmd.Flags().AddFlagSet(set)
	}
	return cmd
}

func openArchive(store nodebuilder.Store, cfg nodebuilder.Config) (*archive.Store, error) {
	ds, err := store.Datastore()
	if err != nil {
		return nil, err
	}
	return archive.NewStore(ds, cfg.Archive.Options()...)
}
