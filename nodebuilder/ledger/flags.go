package ledger

import (
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/shredwatch/shredwatch-node/ledger"
)

var (
	clusterFlag    = "ledger.cluster"
	urlFlag        = "ledger.url"
	wsURLFlag      = "ledger.ws-url"
	commitmentFlag = "ledger.commitment"
)

// Flags gives a set of hardcoded ledger flags.
func Flags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.String(
		clusterFlag,
		"",
		"Ledger cluster to sample: mainnet, devnet, localnet or custom",
	)
	flags.String(
		urlFlag,
		"",
		"RPC endpoint of the ledger. Required for the custom cluster",
	)
	flags.String(
		wsURLFlag,
		"",
		"Slot subscription endpoint (default: derived from the RPC endpoint)",
	)
	flags.String(
		commitmentFlag,
		"",
		"Commitment level of fragment requests (default: confirmed)",
	)

	return flags
}

// ParseFlags parses ledger flags from the given cmd and saves them to the passed config.
func ParseFlags(cmd *cobra.Command, cfg *Config) error {
	cluster := cmd.Flag(clusterFlag).Value.String()
	if cluster != "" {
		cfg.Cluster = cluster
	}
	url := cmd.Flag(urlFlag).Value.String()
	if url != "" {
		cfg.URL = url
		if !cmd.Flag(clusterFlag).Changed {
			cfg.Cluster = ledger.Custom.String()
		}
	}
	wsURL := cmd.Flag(wsURLFlag).Value.String()
	if wsURL != "" {
		cfg.WSURL = wsURL
	}
	commitment := cmd.Flag(commitmentFlag).Value.String()
	if commitment != "" {
		cfg.Commitment = commitment
	}
	return cfg.Validate()
}
