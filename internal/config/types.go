package config

import "time"

// Config is the top-level configuration of kfctl-e2e.
type Config struct {
	Workflow WorkflowConfig `yaml:"workflow"`
	Check    CheckConfig    `yaml:"check"`
}

// WorkflowConfig configures the workflow builder. Empty fields take the
// builder defaults.
type WorkflowConfig struct {
	Name           string   `yaml:"name,omitempty"`
	Namespace      string   `yaml:"namespace,omitempty"`
	AppName        string   `yaml:"appName,omitempty"`
	ConfigPath     string   `yaml:"configPath,omitempty"`
	TestTargetName string   `yaml:"testTargetName,omitempty"`
	TestEndpoint   bool     `yaml:"testEndpoint,omitempty"`
	UseBasicAuth   bool     `yaml:"useBasicAuth,omitempty"`
	BuildAndApply  bool     `yaml:"buildAndApply,omitempty"`
	DeleteKF       *bool    `yaml:"deleteKf,omitempty"` // Default: true
	ExtraRepos     []string `yaml:"extraRepos,omitempty"`
	Project        string   `yaml:"project,omitempty"`
	Zone           string   `yaml:"zone,omitempty"`
	Bucket         string   `yaml:"bucket,omitempty"`
	Image          string   `yaml:"image,omitempty"`
	CheckBinary    string   `yaml:"checkBinary,omitempty"`

	// Upgrade selects the upgrade workflow.
	Upgrade         bool   `yaml:"upgrade,omitempty"`
	UpgradeSpecPath string `yaml:"upgradeSpecPath,omitempty"`
}

// ShouldDelete reports whether the workflow tears the deployment down.
func (w WorkflowConfig) ShouldDelete() bool {
	return w.DeleteKF == nil || *w.DeleteKF
}

// CheckConfig holds the defaults and timeouts of the cluster checks.
type CheckConfig struct {
	// Namespace and Project apply unless --namespace or --project is set.
	Namespace string `yaml:"namespace,omitempty"`
	Project   string `yaml:"project,omitempty"`

	// ReadyTimeout bounds the wait for one workload.
	ReadyTimeout time.Duration `yaml:"readyTimeout,omitempty"`
	// PollInterval is the delay between readiness probes.
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
	// EndpointTimeout bounds the wait for the public endpoint.
	EndpointTimeout time.Duration `yaml:"endpointTimeout,omitempty"`
	// DeleteWindow bounds the retries of the wrong cluster delete.
	DeleteWindow time.Duration `yaml:"deleteWindow,omitempty"`
}
