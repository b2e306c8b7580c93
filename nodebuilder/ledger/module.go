package ledger

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/fx"

	"github.com/shredwatch/shredwatch-node/das"
	"github.com/shredwatch/shredwatch-node/ledger"
)

var log = logging.Logger("module/ledger")

func ConstructModule(cfg *Config) fx.Option {
	// sanitize config values before constructing module
	cfgErr := cfg.Validate()

	return fx.Module(
		"ledger",
		fx.Supply(*cfg),
		fx.Error(cfgErr),
		fx.Provide(fx.Annotate(
			newClient,
			fx.OnStop(func(_ context.Context, cl *ledger.Client) error {
				cl.Close()
				return nil
			}),
		)),
		fx.Provide(func(cl *ledger.Client) das.Ledger {
			return cl
		}),
	)
}

func newClient(ctx context.Context, cfg Config) (*ledger.Client, error) {
	addr, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}
	log.Infow("connecting to ledger", "cluster", cfg.Cluster, "rpc", addr)
	return ledger.NewClient(ctx, addr, cfg.WSURL, cfg.Commitment)
}
