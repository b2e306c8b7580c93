package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/shredwatch/shredwatch-node/nodebuilder/ledger"
	"github.com/shredwatch/shredwatch-node/nodebuilder/status"
)

// PrintOutput writes data, or err when set, to w as an indented JSON result.
func PrintOutput(w io.Writer, data interface{}, err error, formatData func(interface{}) interface{}) error {
	switch {
	case err != nil:
		data = err.Error()
	case formatData != nil:
		data = formatData(data)
	}

	resp := struct {
		Result interface{} `json:"result"`
	}{
		Result: data,
	}

	bytes, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bytes))
	return err
}

// Flags returns every flag set the node commands accept.
func Flags() []*flag.FlagSet {
	return []*flag.FlagSet{
		NodeFlags(),
		ledger.Flags(),
		status.Flags(),
		MiscFlags(),
	}
}

// PersistentPreRunEnv loads the config of the store and applies the flags of
// cmd on top of it.
func PersistentPreRunEnv(cmd *cobra.Command, _ []string) error {
	var (
		ctx = cmd.Context()
		err error
	)

	// loads existing config into the environment
	ctx, err = ParseNodeFlags(ctx, cmd)
	if err != nil {
		return err
	}

	cfg := NodeConfig(ctx)

	err = ledger.ParseFlags(cmd, &cfg.Ledger)
	if err != nil {
		return err
	}
	status.ParseFlags(cmd, &cfg.Status)

	ctx, err = ParseMiscFlags(ctx, cmd)
	if err != nil {
		return err
	}

	// set config
	ctx = WithNodeConfig(ctx, &cfg)
	cmd.SetContext(ctx)
	return nil
}

// WithFlagSet adds the given flagset to the command.
func WithFlagSet(fset []*flag.FlagSet) func(*cobra.Command) {
	return func(c *cobra.Command) {
		for _, set := range fset {
			c.Flags().AddFlagSet(set)
		}
	}
}
