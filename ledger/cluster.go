package ledger

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Cluster names a well-known ledger deployment.
type Cluster string

const (
	Mainnet  Cluster = "mainnet"
	Devnet   Cluster = "devnet"
	Localnet Cluster = "localnet"
	// Custom selects a user supplied RPC URL.
	Custom Cluster = "custom"
)

var ErrUnknownCluster = errors.New("ledger: unknown cluster")

var endpoints = map[Cluster]string{
	Mainnet:  "https://api.mainnet-beta.solana.com",
	Devnet:   "https://api.devnet.solana.com",
	Localnet: "http://0.0.0.0:8899",
}

// ParseCluster parses a cluster name.
func ParseCluster(s string) (Cluster, error) {
	c := Cluster(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := endpoints[c]; ok || c == Custom {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCluster, s)
}

// Endpoint returns the RPC endpoint of a well-known cluster. Custom clusters
// have none.
func (c Cluster) Endpoint() (string, error) {
	ep, ok := endpoints[c]
	if !ok {
		return "", fmt.Errorf("%w: %q has no default endpoint", ErrUnknownCluster, string(c))
	}
	return ep, nil
}

func (c Cluster) String() string {
	return string(c)
}

// WebsocketURL derives the push endpoint from an RPC endpoint: http becomes
// ws, https becomes wss, and an explicit port is incremented by one.
func WebsocketURL(rpcURL string) (string, error) {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return "", fmt.Errorf("ledger: parsing rpc url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("ledger: unsupported rpc url scheme %q", u.Scheme)
	}

	if port := u.Port(); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return "", fmt.Errorf("ledger: parsing rpc url port: %w", err)
		}
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(p+1))
	}
	return u.String(), nil
}
