package das

import (
	"fmt"

	"github.com/shredwatch/shredwatch-node/das"
)

// Config contains configuration parameters for the DASer (or DASing process)
type Config das.Parameters

func DefaultConfig() Config {
	return Config(das.DefaultParameters())
}

// Validate performs basic validation of the config.
func (cfg *Config) Validate() error {
	err := (*das.Parameters)(cfg).Validate()
	if err != nil {
		return fmt.Errorf("moddas misconfiguration: %w", err)
	}
	return nil
}
