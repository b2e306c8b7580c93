package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCluster(t *testing.T) {
	for _, name := range []string{"mainnet", "Devnet", " localnet ", "custom"} {
		_, err := ParseCluster(name)
		require.NoError(t, err, name)
	}
	_, err := ParseCluster("testnet")
	assert.ErrorIs(t, err, ErrUnknownCluster)

	_, err = Custom.Endpoint()
	assert.ErrorIs(t, err, ErrUnknownCluster)

	ep, err := Localnet.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "http://0.0.0.0:8899", ep)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"https://api.mainnet-beta.solana.com", "wss://api.mainnet-beta.solana.com"},
		{"http://0.0.0.0:8899", "ws://0.0.0.0:8900"},
		{"http://[::1]:8899/rpc", "ws://[::1]:8900/rpc"},
		{"ws://127.0.0.1:9000", "ws://127.0.0.1:9001"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := WebsocketURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.out, got)
		})
	}

	_, err := WebsocketURL("ftp://example.com")
	assert.Error(t, err)
}
