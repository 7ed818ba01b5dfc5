// Package config loads the orchestrator's runtime tunables through a
// per-instance viper.Viper rather than the global viper singleton, so
// multiple Orchestrators in one process never fight over environment
// bindings.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the orchestrator's runtime tunables. None of these affect
// scheduling semantics; they only govern how fast the loop polls and how
// much dispatch concurrency it's allowed to use.
type Config struct {
	// PollInterval is how long RunWorkflow sleeps between discovery
	// passes once a queue drain leaves nothing dispatchable but the
	// workflow is not yet complete.
	PollInterval time.Duration

	// DispatchConcurrency bounds how many ready tasks are dispatched
	// concurrently via errgroup. Defaults to 1, which preserves strict
	// FIFO dispatch order; raise it to let independent ready tasks run
	// in parallel.
	DispatchConcurrency int

	// QueueBuffer sizes the initial capacity of each run's ready queue,
	// purely an allocation knob.
	QueueBuffer int
}

// Load builds a Config from environment variables prefixed DAGFLOW_, with
// defaults matching a single-threaded deterministic run. Env var names:
// DAGFLOW_POLL_INTERVAL (Go duration string), DAGFLOW_DISPATCH_CONCURRENCY,
// DAGFLOW_QUEUE_BUFFER.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("dagflow")
	v.AutomaticEnv()

	v.SetDefault("poll_interval", 10*time.Millisecond)
	v.SetDefault("dispatch_concurrency", 1)
	v.SetDefault("queue_buffer", 64)

	return &Config{
		PollInterval:        v.GetDuration("poll_interval"),
		DispatchConcurrency: v.GetInt("dispatch_concurrency"),
		QueueBuffer:         v.GetInt("queue_buffer"),
	}
}

// Default returns the zero-configuration Config, equivalent to Load with
// no environment overrides present. Convenient for tests and for New
// callers that don't need environment-driven tuning.
func Default() *Config {
	return &Config{
		PollInterval:        10 * time.Millisecond,
		DispatchConcurrency: 1,
		QueueBuffer:         64,
	}
}
