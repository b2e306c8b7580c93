package nodebuilder

import (
	"context"

	"go.uber.org/fx"

	"github.com/shredwatch/shredwatch-node/das"
	"github.com/shredwatch/shredwatch-node/nodebuilder/archive"
	moddas "github.com/shredwatch/shredwatch-node/nodebuilder/das"
	"github.com/shredwatch/shredwatch-node/nodebuilder/health"
	"github.com/shredwatch/shredwatch-node/nodebuilder/ledger"
	"github.com/shredwatch/shredwatch-node/nodebuilder/status"
)

func ConstructModule(cfg *Config, store Store) fx.Option {
	baseComponents := fx.Options(
		fx.Provide(func(lc fx.Lifecycle) context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.StopHook(cancel))
			return ctx
		}),
		fx.Supply(cfg),
		fx.Provide(store.Datastore),
		fx.Invoke(invokeWatchdog(pprofPath(store.Path()))),
		// modules provided by the node
		health.ConstructModule(),
		ledger.ConstructModule(&cfg.Ledger),
		archive.ConstructModule(&cfg.Archive),
		moddas.ConstructModule(&cfg.DASer),
		status.ConstructModule(&cfg.Status),
		// the DASer is requested even when nothing else depends on it
		fx.Invoke(func(*das.DASer) {}),
	)

	return fx.Module(
		"node",
		baseComponents,
	)
}
