package ledger

import (
	"fmt"
	"net/url"

	"github.com/shredwatch/shredwatch-node/ledger"
)

// Config combines the parameters needed to reach the ledger.
type Config struct {
	// Cluster is one of mainnet, devnet, localnet or custom.
	Cluster string
	// URL is the RPC endpoint of a custom cluster. It overrides the cluster
	// endpoint when set.
	URL string
	// WSURL overrides the slot subscription endpoint derived from the RPC one.
	WSURL      string
	Commitment string
}

func DefaultConfig() Config {
	return Config{
		Cluster:    ledger.Mainnet.String(),
		Commitment: ledger.DefaultCommitment,
	}
}

// Validate performs basic validation of the config.
func (cfg *Config) Validate() error {
	cluster, err := ledger.ParseCluster(cfg.Cluster)
	if err != nil {
		return fmt.Errorf("nodebuilder/ledger: %w", err)
	}
	if cluster == ledger.Custom && cfg.URL == "" {
		return fmt.Errorf("nodebuilder/ledger: custom cluster requires an RPC URL")
	}
	if cfg.URL != "" {
		if _, err := url.ParseRequestURI(cfg.URL); err != nil {
			return fmt.Errorf("nodebuilder/ledger: invalid RPC URL: %w", err)
		}
	}
	if cfg.WSURL != "" {
		if _, err := url.ParseRequestURI(cfg.WSURL); err != nil {
			return fmt.Errorf("nodebuilder/ledger: invalid websocket URL: %w", err)
		}
	}
	return nil
}

// Endpoint returns the RPC endpoint the node talks to.
func (cfg *Config) Endpoint() (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	cluster, err := ledger.ParseCluster(cfg.Cluster)
	if err != nil {
		return "", err
	}
	return cluster.Endpoint()
}
