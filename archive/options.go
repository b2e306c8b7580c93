package archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

var errInvalidOptionValue = errors.New("archive: invalid option")

// Parameters is the set of parameters for the archive store and its pruner.
type Parameters struct {
	// CacheSize is the number of recently used records kept in memory.
	CacheSize int
	// Retention is how long a record is kept. Zero keeps records forever.
	Retention time.Duration
	// PruneInterval is how often the pruner looks for expired records.
	PruneInterval time.Duration

	clock clock.Clock
}

type Option func(*Parameters)

func DefaultParameters() Parameters {
	return Parameters{
		CacheSize:     1024,
		Retention:     0,
		PruneInterval: time.Hour,
		clock:         clock.New(),
	}
}

func (p *Parameters) Validate() error {
	if p.CacheSize <= 0 {
		return fmt.Errorf("%w: CacheSize must be positive, got %d", errInvalidOptionValue, p.CacheSize)
	}
	if p.Retention < 0 {
		return fmt.Errorf("%w: Retention must not be negative, got %v", errInvalidOptionValue, p.Retention)
	}
	if p.Retention > 0 && p.PruneInterval <= 0 {
		return fmt.Errorf("%w: PruneInterval must be positive, got %v", errInvalidOptionValue, p.PruneInterval)
	}
	return nil
}

func WithCacheSize(size int) Option {
	return func(p *Parameters) {
		p.CacheSize = size
	}
}

func WithRetention(retention, interval time.Duration) Option {
	return func(p *Parameters) {
		p.Retention = retention
		p.PruneInterval = interval
	}
}

// WithClock sets the time source used to stamp and expire records.
func WithClock(c clock.Clock) Option {
	return func(p *Parameters) {
		p.clock = c
	}
}
