// Package config loads the kfctl-e2e configuration file.
//
// The file is YAML with two sections:
//
//	workflow:
//	  name: kfctl-e2e-1234
//	  appName: kfctl-ab12
//	  testEndpoint: true
//	  extraRepos:
//	    - kubeflow/manifests@v1.1-branch
//	check:
//	  readyTimeout: 10m
//	  pollInterval: 10s
//
// Values not present in the file keep the defaults of GetDefaultConfig, and
// command line flags override both. Problems are reported as
// ConfigurationError values, collected in a ConfigurationErrorCollection when
// there is more than one.
//
// ParseBool implements the string to boolean coercion of the test harness
// flags.
package config
