package status

import (
	"context"

	"go.uber.org/fx"

	"github.com/shredwatch/shredwatch-node/api/status"
	"github.com/shredwatch/shredwatch-node/das"
)

func ConstructModule(cfg *Config) fx.Option {
	// sanitize config values before constructing module
	cfgErr := cfg.Validate()

	baseComponents := fx.Options(
		fx.Supply(*cfg),
		fx.Error(cfgErr),
	)
	if !cfg.Enabled {
		return fx.Module("status", baseComponents)
	}

	return fx.Module(
		"status",
		baseComponents,
		fx.Provide(fx.Annotate(
			server,
			fx.OnStart(func(ctx context.Context, server *status.Server) error {
				return server.Start(ctx)
			}),
			fx.OnStop(func(ctx context.Context, server *status.Server) error {
				return server.Stop(ctx)
			}),
		)),
		fx.Invoke(handler),
	)
}

func server(cfg Config) *status.Server {
	return status.NewServer(cfg.Address, cfg.Port)
}

// handler constructs the status Handler from the given services and mounts it on serv.
func handler(
	hr status.HealthReader,
	daser *das.DASer,
	ar status.ArchiveReader,
	serv *status.Server,
) error {
	h, err := status.NewHandler(hr, daser, ar)
	if err != nil {
		return err
	}
	h.RegisterMiddleware(serv)
	h.RegisterEndpoints(serv)
	return nil
}
