package nodebuilder

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"github.com/imdario/mergo"

	"github.com/shredwatch/shredwatch-node/nodebuilder/archive"
	"github.com/shredwatch/shredwatch-node/nodebuilder/das"
	"github.com/shredwatch/shredwatch-node/nodebuilder/ledger"
	"github.com/shredwatch/shredwatch-node/nodebuilder/status"
)

// ConfigLoader defines a function that loads a config from any source.
type ConfigLoader func() (*Config, error)

// Config is main configuration structure for a Node.
// It combines configuration units for all Node subsystems.
type Config struct {
	Ledger  ledger.Config
	DASer   das.Config
	Archive archive.Config
	Status  status.Config
}

// DefaultConfig provides a default Config.
func DefaultConfig() *Config {
	return &Config{
		Ledger:  ledger.DefaultConfig(),
		DASer:   das.DefaultConfig(),
		Archive: archive.DefaultConfig(),
		Status:  status.DefaultConfig(),
	}
}

// Validate validates every configuration unit, joining their errors.
func (cfg *Config) Validate() error {
	return errors.Join(
		cfg.Ledger.Validate(),
		cfg.DASer.Validate(),
		cfg.Archive.Validate(),
		cfg.Status.Validate(),
	)
}

// SaveConfig saves Config 'cfg' under the given 'path'.
func SaveConfig(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return cfg.Encode(f)
}

// LoadConfig loads Config from the given 'path'.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	return &cfg, cfg.Decode(f)
}

// UpdateConfig loads the node's config and applies new values
// from the default config, saving the newly updated config
// into the node's config path.
func UpdateConfig(path string) (err error) {
	path, err = storePath(path)
	if err != nil {
		return err
	}

	flk := flock.New(lockPath(path))
	ok, err := flk.TryLock()
	if err != nil {
		return fmt.Errorf("locking file: %w", err)
	}
	if !ok {
		return ErrOpened
	}
	defer flk.Unlock() //nolint:errcheck

	cfgPath := configPath(path)
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	cfg, err = updateConfig(cfg, DefaultConfig())
	if err != nil {
		return err
	}

	return SaveConfig(cfgPath, cfg)
}

// updateConfig merges new values from the new config into the old
// config, returning the updated old config. Values already set in
// the old config are kept.
func updateConfig(oldCfg, newCfg *Config) (*Config, error) {
	// mergo cannot tell an explicit zero from a missing value, so zeros
	// that carry meaning are restored after the merge
	archiveEnabled := oldCfg.Archive.Enabled
	maxFailures := oldCfg.DASer.MaxConsecutiveFailures

	err := mergo.Merge(oldCfg, newCfg, mergo.WithOverrideEmptySlice)
	oldCfg.Archive.Enabled = archiveEnabled
	oldCfg.DASer.MaxConsecutiveFailures = maxFailures
	return oldCfg, err
}

// Encode encodes a given Config into w.
func (cfg *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Decode decodes a Config from a given reader r.
func (cfg *Config) Decode(r io.Reader) error {
	_, err := toml.NewDecoder(r).Decode(cfg)
	return err
}
