package health

import (
	"context"

	"go.uber.org/fx"

	"github.com/shredwatch/shredwatch-node/api/status"
	"github.com/shredwatch/shredwatch-node/health"
)

func ConstructModule() fx.Option {
	return fx.Module(
		"health",
		fx.Provide(fx.Annotate(
			func() *health.Tracker {
				return health.NewTracker("node is initializing")
			},
			fx.OnStart(func(_ context.Context, t *health.Tracker) error {
				t.Set(health.SearchingForService, "connecting to the ledger")
				return nil
			}),
		)),
		fx.Provide(func(t *health.Tracker) status.HealthReader {
			return t
		}),
	)
}
