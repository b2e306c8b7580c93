package das

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"
)

// ErrInvalidOption is an error that is returned by Parameters.Validate
// when supplied with invalid values.
// This error will also be returned by NewDASer if supplied with an invalid option
var ErrInvalidOption = errors.New("das: invalid option")

// errInvalidOptionValue is a utility function to dedup code for error-returning
// when dealing with invalid parameter values
func errInvalidOptionValue(optionName string, value string) error {
	return fmt.Errorf("%w: value %s cannot be %s", ErrInvalidOption, optionName, value)
}

// Option is the functional option that is applied to the daser instance
// to configure DASing parameters (the Parameters struct)
type Option func(*DASer)

// Parameters is the set of parameters that must be configured for the daser
type Parameters struct {
	// SampleSize is the number of random fragment indices drawn per slot.
	// Index 0 is always requested on top of them.
	SampleSize uint

	// VerifyWorkers is the size of the worker pool verifying fragments.
	VerifyWorkers int

	// RequestTimeout bounds each ledger request. Zero disables the bound.
	RequestTimeout time.Duration

	// MaxConsecutiveFailures is the number of slots in a row that may be
	// abandoned on transport errors before health is marked Crashed. Zero
	// never marks it.
	MaxConsecutiveFailures uint
}

// DefaultParameters returns the default configuration values for the daser parameters
func DefaultParameters() Parameters {
	return Parameters{
		SampleSize:             10,
		VerifyWorkers:          runtime.NumCPU(),
		RequestTimeout:         0,
		MaxConsecutiveFailures: 10,
	}
}

// Validate validates the values in Parameters
func (p *Parameters) Validate() error {
	if p.SampleSize == 0 {
		return errInvalidOptionValue("SampleSize", "0")
	}
	if p.VerifyWorkers <= 0 {
		return errInvalidOptionValue("VerifyWorkers", "negative or 0")
	}
	if p.RequestTimeout < 0 {
		return errInvalidOptionValue("RequestTimeout", "negative")
	}
	return nil
}

// WithSampleSize is a functional option to configure the daser's `SampleSize` parameter
func WithSampleSize(size uint) Option {
	return func(d *DASer) {
		d.params.SampleSize = size
	}
}

// WithVerifyWorkers is a functional option to configure the daser's `VerifyWorkers` parameter
func WithVerifyWorkers(workers int) Option {
	return func(d *DASer) {
		d.params.VerifyWorkers = workers
	}
}

// WithRequestTimeout is a functional option to configure the daser's `RequestTimeout` parameter
func WithRequestTimeout(timeout time.Duration) Option {
	return func(d *DASer) {
		d.params.RequestTimeout = timeout
	}
}

// WithMaxConsecutiveFailures is a functional option to configure the daser's
// `MaxConsecutiveFailures` parameter
func WithMaxConsecutiveFailures(n uint) Option {
	return func(d *DASer) {
		d.params.MaxConsecutiveFailures = n
	}
}

// WithRandSource sets the source sample indices are drawn from.
func WithRandSource(src rand.Source) Option {
	return func(d *DASer) {
		d.indices = newIndexSampler(src)
	}
}

func cryptoSeededSource() rand.Source {
	var seed [32]byte
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = crand.Read(seed[:])
	return rand.NewChaCha8(seed)
}
