package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		wantFields []string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:       "app name too long",
			mutate:     func(c *Config) { c.Workflow.AppName = "abcdefghijklmnopqrstu" },
			wantFields: []string{"workflow.appName"},
		},
		{
			name:   "app name at limit",
			mutate: func(c *Config) { c.Workflow.AppName = "abcdefghijklmnopqrst" },
		},
		{
			name:       "malformed repo",
			mutate:     func(c *Config) { c.Workflow.ExtraRepos = []string{"kubeflow/kfctl", "kubeflow/testing@HEAD"} },
			wantFields: []string{"workflow.extraRepos"},
		},
		{
			name:       "upgrade spec without upgrade",
			mutate:     func(c *Config) { c.Workflow.UpgradeSpecPath = "spec.yaml" },
			wantFields: []string{"workflow.upgradeSpecPath"},
		},
		{
			name: "non positive durations",
			mutate: func(c *Config) {
				c.Check.ReadyTimeout = 0
				c.Check.DeleteWindow = -1
			},
			wantFields: []string{"check.readyTimeout", "check.deleteWindow"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			err := Validate(cfg, "/tmp/config.yaml")
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var collection ConfigurationErrorCollection
			require.True(t, errors.As(err, &collection))
			var fields []string
			for _, e := range collection.Errors {
				assert.Equal(t, "validation", e.ErrorType)
				assert.Equal(t, "config.yaml", e.FileName)
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestConfigurationError(t *testing.T) {
	err := ConfigurationError{FileName: "config.yaml", FilePath: "/tmp/config.yaml", ErrorType: "validation", Field: "check.readyTimeout", Message: "must be a positive duration"}
	assert.Equal(t, "[validation] config.yaml: field 'check.readyTimeout': must be a positive duration", err.Error())
	assert.Contains(t, err.DetailedError(), "File: /tmp/config.yaml")

	assert.Equal(t, "[io] configuration: boom", ConfigurationError{ErrorType: "io", Message: "boom"}.Error())
	assert.Equal(t, "no configuration errors", ConfigurationErrorCollection{}.Error())
}

func TestIsConfigurationError(t *testing.T) {
	single := NewConfigurationError("/tmp/c.yaml", "c.yaml", "parse", "bad")
	collection := ConfigurationErrorCollection{Errors: []ConfigurationError{single}}

	assert.True(t, IsConfigurationError(single))
	assert.True(t, IsConfigurationError(collection))
	assert.True(t, IsConfigurationError(fmt.Errorf("loading: %w", single)))
	assert.False(t, IsConfigurationError(errors.New("other")))
	assert.False(t, IsConfigurationError(nil))
}
