package config

import (
	"errors"
	"fmt"
)

// Validate checks settings that would otherwise fail late at request time.
func (c *Config) Validate() error {
	var errs []error

	switch c.Classifier.Mode {
	case ModeRules:
	case ModeAssisted:
		if c.Classifier.Primary.Provider == "" || c.Classifier.Primary.Model == "" {
			errs = append(errs, errors.New("classifier.primary needs provider and model in assisted mode"))
		}
		if c.Classifier.Timeout <= 0 {
			errs = append(errs, errors.New("classifier.timeout must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("classifier.mode %q is not one of %q, %q", c.Classifier.Mode, ModeRules, ModeAssisted))
	}

	if c.Server.MinPromptLength < 1 || c.Server.MaxPromptLength < c.Server.MinPromptLength {
		errs = append(errs, fmt.Errorf("server prompt length bounds [%d, %d] are invalid",
			c.Server.MinPromptLength, c.Server.MaxPromptLength))
	}

	inj := c.Filter.Injection
	if inj.Enabled && inj.FlagThreshold > inj.BlockThreshold {
		errs = append(errs, errors.New("filter.injection.flag_threshold must not exceed block_threshold"))
	}

	return errors.Join(errs...)
}
