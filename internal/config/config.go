// Package config holds the flat, defaulted run configuration populated by
// cmd/ioreplay's flag parsing (spec.md §1 treats CLI parsing itself as an
// external collaborator; this package is what it populates).
//
// Reference: a defaulted ParsedOptions-style struct, narrowed from an
// OPTIONS-file parser to the handful of fields this benchmark's CLI
// surface exposes (spec.md §6).
package config

import "errors"

// Config is the resolved configuration for one ioreplay invocation.
type Config struct {
	// ScratchDir is the operator-configured writable directory that holds
	// every synthesized file for the run (spec.md §6).
	ScratchDir string

	// TracePaths lists the input trace files to replay, in argument order.
	TracePaths []string

	// Iterations is the number of replay iterations per wave, after
	// pre-create and before teardown (spec.md §2 flow).
	Iterations int

	// MaxWorkers bounds the worker-thread ceiling per wave (spec.md §5);
	// a wave with fewer traces than MaxWorkers uses one worker per trace.
	MaxWorkers int

	// DelayEnabled toggles the Delay Gate (spec.md §4.4). When false the
	// gate is a no-op and replay runs at full speed.
	DelayEnabled bool

	// DropCachesCmd, if non-empty, is an external command run between
	// phases to request a page-cache drop (spec.md §6 Kernel hook),
	// mirroring the original source's
	// `system("echo 3 > /proc/sys/vm/drop_caches")`. Empty means skip it.
	DropCachesCmd string

	// MetricsAddr, if non-empty, serves Prometheus metrics on this address
	// for the run's duration (spec.md expansion §2, component 11).
	MetricsAddr string
}

// Default values matching the original source's behavior when no override
// is supplied on the command line.
const (
	DefaultIterations = 1
	DefaultMaxWorkers = 16
)

// New returns a Config with defaults applied; callers set ScratchDir and
// TracePaths explicitly since there is no sane default for either.
func New() Config {
	return Config{
		Iterations: DefaultIterations,
		MaxWorkers: DefaultMaxWorkers,
	}
}

// Validate checks the invariants cmd/ioreplay needs before planning any
// wave: a scratch directory and at least one trace path must be set, and
// numeric fields must be positive.
func (c Config) Validate() error {
	if c.ScratchDir == "" {
		return errors.New("config: scratch directory is required")
	}
	if len(c.TracePaths) == 0 {
		return errors.New("config: at least one trace file is required")
	}
	if c.Iterations <= 0 {
		return errors.New("config: iterations must be positive")
	}
	if c.MaxWorkers <= 0 {
		return errors.New("config: max workers must be positive")
	}
	return nil
}
