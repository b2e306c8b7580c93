package das

import (
	"go.uber.org/fx"

	"github.com/shredwatch/shredwatch-node/das"
)

func WithMetrics() fx.Option {
	return fx.Invoke(func(d *das.DASer) error {
		return d.WithMetrics()
	})
}
