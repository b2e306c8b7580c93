package das

import (
	"context"

	"go.uber.org/fx"

	"github.com/shredwatch/shredwatch-node/das"
)

func ConstructModule(cfg *Config) fx.Option {
	return fx.Module(
		"das",
		fx.Supply(*cfg),
		fx.Error(cfg.Validate()),
		fx.Provide(
			func(c Config) []das.Option {
				return []das.Option{
					das.WithSampleSize(c.SampleSize),
					das.WithVerifyWorkers(c.VerifyWorkers),
					das.WithRequestTimeout(c.RequestTimeout),
					das.WithMaxConsecutiveFailures(c.MaxConsecutiveFailures),
				}
			},
		),
		fx.Provide(fx.Annotate(
			das.NewDASer,
			fx.OnStart(func(ctx context.Context, d *das.DASer) error {
				return d.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, d *das.DASer) error {
				return d.Stop(ctx)
			}),
		)),
	)
}
