package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Validate checks a loaded configuration and returns a
// ConfigurationErrorCollection listing every problem, or nil.
func Validate(cfg Config, configPath string) error {
	errs := ConfigurationErrorCollection{}
	add := func(field, message string) {
		errs.Add(ConfigurationError{
			FilePath:  configPath,
			FileName:  filepath.Base(configPath),
			ErrorType: "validation",
			Field:     field,
			Message:   message,
		})
	}

	w := cfg.Workflow
	if len(w.AppName) > 20 {
		add("workflow.appName", fmt.Sprintf("%q must not exceed 20 characters", w.AppName))
	}
	if strings.Contains(w.Name, " ") {
		add("workflow.name", "cannot contain spaces")
	}
	for _, r := range w.ExtraRepos {
		if !strings.Contains(r, "@") || !strings.Contains(r, "/") {
			add("workflow.extraRepos", fmt.Sprintf("%q must be in the form owner/repo@ref", r))
		}
	}
	if w.UpgradeSpecPath != "" && !w.Upgrade {
		add("workflow.upgradeSpecPath", "is only used when upgrade is enabled")
	}

	c := cfg.Check
	for _, d := range []struct {
		field string
		value time.Duration
	}{
		{"check.readyTimeout", c.ReadyTimeout},
		{"check.pollInterval", c.PollInterval},
		{"check.endpointTimeout", c.EndpointTimeout},
		{"check.deleteWindow", c.DeleteWindow},
	} {
		if d.value <= 0 {
			add(d.field, "must be a positive duration")
		}
	}
	if c.PollInterval > 0 && c.ReadyTimeout > 0 && c.PollInterval > c.ReadyTimeout {
		add("check.pollInterval", "must not exceed check.readyTimeout")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
