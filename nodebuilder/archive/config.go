package archive

import (
	"fmt"
	"time"

	"github.com/shredwatch/shredwatch-node/archive"
)

// Config controls whether and for how long verified fragments are kept.
type Config struct {
	Enabled bool
	// Retention is how long an archived fragment is kept. Zero keeps it forever.
	Retention     time.Duration
	PruneInterval time.Duration
	CacheSize     int
}

func DefaultConfig() Config {
	params := archive.DefaultParameters()
	return Config{
		Enabled:       true,
		Retention:     params.Retention,
		PruneInterval: params.PruneInterval,
		CacheSize:     params.CacheSize,
	}
}

// Validate performs basic validation of the config.
func (cfg *Config) Validate() error {
	if !cfg.Enabled {
		return nil
	}
	params := archive.DefaultParameters()
	for _, opt := range cfg.Options() {
		opt(&params)
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("modarchive misconfiguration: %w", err)
	}
	return nil
}

// Options converts the config into archive options.
func (cfg *Config) Options() []archive.Option {
	return []archive.Option{
		archive.WithCacheSize(cfg.CacheSize),
		archive.WithRetention(cfg.Retention, cfg.PruneInterval),
	}
}
