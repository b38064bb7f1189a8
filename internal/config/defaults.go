package config

import "time"

const (
	DefaultNamespace = "kubeflow"
	DefaultProject   = "kubeflow-ci-deployment"

	DefaultReadyTimeout    = 10 * time.Minute
	DefaultPollInterval    = 10 * time.Second
	DefaultEndpointTimeout = 15 * time.Minute
	DefaultDeleteWindow    = 3 * time.Minute
)

// GetDefaultConfig returns the configuration used when no file is given.
func GetDefaultConfig() Config {
	return Config{
		Check: CheckConfig{
			Namespace:       DefaultNamespace,
			Project:         DefaultProject,
			ReadyTimeout:    DefaultReadyTimeout,
			PollInterval:    DefaultPollInterval,
			EndpointTimeout: DefaultEndpointTimeout,
			DeleteWindow:    DefaultDeleteWindow,
		},
	}
}
