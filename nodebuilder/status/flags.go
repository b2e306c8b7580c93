package status

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var log = logging.Logger("module/status")

var (
	enabledFlag = "status"
	addrFlag    = "status.addr"
	portFlag    = "status.port"
)

// Flags gives a set of hardcoded status server flags.
func Flags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.Bool(
		enabledFlag,
		false,
		"Enables the status server",
	)
	flags.String(
		addrFlag,
		"",
		"Set a custom status server listen address (default: 0.0.0.0)",
	)
	flags.String(
		portFlag,
		"",
		"Set a custom status server port (default: 26660)",
	)

	return flags
}

// ParseFlags parses status flags from the given cmd and saves them to the passed config.
func ParseFlags(cmd *cobra.Command, cfg *Config) {
	enabled, err := cmd.Flags().GetBool(enabledFlag)
	if cmd.Flags().Changed(enabledFlag) && err == nil {
		cfg.Enabled = enabled
	}
	addr, port := cmd.Flag(addrFlag), cmd.Flag(portFlag)
	if !cfg.Enabled && (addr.Changed || port.Changed) {
		log.Warn("custom address or port provided without enabling the status server, setting config values")
	}
	addrVal := addr.Value.String()
	if addrVal != "" {
		cfg.Address = addrVal
	}
	portVal := port.Value.String()
	if portVal != "" {
		cfg.Port = portVal
	}
}
