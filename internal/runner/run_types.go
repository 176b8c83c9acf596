package runner

import (
	"time"

	"go.uber.org/zap"

	"permutest/internal/provider"
	"permutest/internal/ratelimit"
	"permutest/internal/spec"
)

// ProviderFactory builds the provider client for a run.
type ProviderFactory func(name string, entry spec.ProviderConfig) (provider.Provider, error)

// Dependencies allows injecting the provider, pacing, clock, logging, and
// observer seams for a run. Zero values fall back to production defaults.
type Dependencies struct {
	ProviderFactory ProviderFactory
	Pacer           ratelimit.Pacer
	Logger          *zap.Logger
	Observer        RunObserver
	Now             func() time.Time
}

// Params configures a run invocation.
type Params struct {
	// BaseDir anchors relative dataset and output paths, normally the
	// directory holding the config file.
	BaseDir string
	// OutputDir overrides the configured output directory when set.
	OutputDir string
	// RetryOnly skips the initial phase and processes only the retry queue.
	RetryOnly bool
	Deps      Dependencies
}

func (d Dependencies) withDefaults(cfg spec.Config) Dependencies {
	if d.ProviderFactory == nil {
		d.ProviderFactory = func(name string, entry spec.ProviderConfig) (provider.Provider, error) {
			return provider.FromConfig(name, entry, nil)
		}
	}
	if d.Pacer == nil {
		var delay time.Duration
		if cfg.Retry.TaskDelay != nil {
			delay = *cfg.Retry.TaskDelay
		}
		d.Pacer = ratelimit.ForDelay(delay)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}
