package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
	"git.home.luguber.info/inful/sitepipe/internal/util/sets"
)

// Validate reports every problem found rather than stopping at the first.
func (c *Config) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(c.Output) == "" {
		result = multierror.Append(result, serrors.ConfigRequired("output"))
	}
	if c.Parallelism < 0 {
		result = multierror.Append(result, serrors.ValidationFailed("parallelism", "must not be negative"))
	}
	if c.Cache.SpillThreshold < 0 {
		result = multierror.Append(result, serrors.ValidationFailed("cache.spill_threshold", "must not be negative"))
	}
	if c.History.Limit < 0 {
		result = multierror.Append(result, serrors.ValidationFailed("history.limit", "must not be negative"))
	}
	if c.Watch.Debounce < 0 || c.Watch.Interval < 0 {
		result = multierror.Append(result, serrors.ValidationFailed("watch", "durations must not be negative"))
	}
	if _, ok := logLevels[string(c.Logging.Level)]; !ok {
		result = multierror.Append(result, serrors.ValidationFailed("logging.level",
			fmt.Sprintf("unknown level %q", c.Logging.Level)))
	}
	if c.Logging.Format != LogFormatJSON && c.Logging.Format != LogFormatText {
		result = multierror.Append(result, serrors.ValidationFailed("logging.format",
			fmt.Sprintf("unknown format %q", c.Logging.Format)))
	}
	result = multierror.Append(result, c.validatePipelines()...)

	return result.ErrorOrNil()
}

func (c *Config) validatePipelines() []error {
	if len(c.Pipelines) == 0 {
		return []error{serrors.ConfigRequired("pipelines")}
	}
	var errs []error
	names := sets.New[string]()
	for i, p := range c.Pipelines {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			errs = append(errs, serrors.ValidationFailed(fmt.Sprintf("pipelines[%d].name", i), "must not be empty"))
			continue
		}
		key := strings.ToLower(name)
		if names.Has(key) {
			errs = append(errs, serrors.DuplicatePipeline(name))
		}
		names.Add(key)
		if len(p.Modules) == 0 {
			errs = append(errs, serrors.ValidationFailed("pipelines."+name+".modules", "at least one module is required"))
		}
	}
	for _, p := range c.Pipelines {
		for _, dep := range p.DependsOn {
			if !names.Has(strings.ToLower(dep)) {
				errs = append(errs, serrors.ValidationFailed("pipelines."+p.Name+".depends_on",
					fmt.Sprintf("unknown pipeline %q", dep)))
			}
		}
	}
	return errs
}
