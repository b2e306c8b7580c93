package archive

import (
	"context"

	"github.com/ipfs/go-datastore"
	logging "github.com/ipfs/go-log/v2"
	"go.uber.org/fx"

	"github.com/shredwatch/shredwatch-node/api/status"
	"github.com/shredwatch/shredwatch-node/archive"
	"github.com/shredwatch/shredwatch-node/das"
)

var log = logging.Logger("module/archive")

func ConstructModule(cfg *Config) fx.Option {
	baseComponents := fx.Options(
		fx.Supply(*cfg),
		fx.Error(cfg.Validate()),
	)

	if !cfg.Enabled {
		log.Warn("archiving is disabled, verified fragments will be discarded")
		return fx.Module(
			"archive",
			baseComponents,
			fx.Provide(func() das.Archive { return nil }),
			fx.Provide(func() status.ArchiveReader { return nil }),
		)
	}

	return fx.Module(
		"archive",
		baseComponents,
		fx.Provide(func(c Config, ds datastore.Batching) (*archive.Store, error) {
			return archive.NewStore(ds, c.Options()...)
		}),
		fx.Provide(fx.Annotate(
			func(c Config, store *archive.Store) (*archive.Pruner, error) {
				return archive.NewPruner(store, c.Options()...)
			},
			fx.OnStart(func(ctx context.Context, p *archive.Pruner) error {
				return p.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, p *archive.Pruner) error {
				return p.Stop(ctx)
			}),
		)),
		// the pruner has no dependents, so it has to be requested to run
		fx.Invoke(func(*archive.Pruner) {}),
		fx.Provide(func(store *archive.Store) das.Archive {
			return store
		}),
		fx.Provide(func(store *archive.Store) status.ArchiveReader {
			return store
		}),
	)
}
