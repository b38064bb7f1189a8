package client

import (
	"context"
	"fmt"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrl "sigs.k8s.io/controller-runtime"

	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
	"kfctl-e2e/pkg/logging"
)

// Phase is the execution phase the workflow engine reports.
type Phase string

const (
	PhasePending   Phase = "Pending"
	PhaseRunning   Phase = "Running"
	PhaseSucceeded Phase = "Succeeded"
	PhaseFailed    Phase = "Failed"
	PhaseError     Phase = "Error"
	// PhaseUnknown is reported before the engine picked the workflow up and by
	// the filesystem backend.
	PhaseUnknown Phase = ""
)

// Done reports whether p is a final phase.
func (p Phase) Done() bool {
	return p == PhaseSucceeded || p == PhaseFailed || p == PhaseError
}

// WorkflowStatus is the part of a submitted workflow's status that is tracked.
type WorkflowStatus struct {
	Name      string
	Namespace string
	Phase     Phase
	Message   string
}

// WorkflowClient submits workflows to the workflow engine.
type WorkflowClient interface {
	CreateWorkflow(ctx context.Context, wf *argov1.Workflow) error
	GetWorkflow(ctx context.Context, namespace, name string) (*WorkflowStatus, error)
	DeleteWorkflow(ctx context.Context, namespace, name string) error

	// IsKubernetesMode reports whether workflows go to a cluster.
	IsKubernetesMode() bool
}

// Config provides configuration options for client creation.
type Config struct {
	// Kubeconfig is an explicit kubeconfig path; empty uses the standard lookup.
	Kubeconfig string

	// FilesystemPath is the directory the filesystem backend writes to.
	FilesystemPath string

	// ForceFilesystemMode forces filesystem mode even if a cluster is available.
	ForceFilesystemMode bool
}

// NewWorkflowClient creates a client, preferring the Kubernetes backend.
func NewWorkflowClient(cfg Config) (WorkflowClient, error) {
	if !cfg.ForceFilesystemMode {
		restConfig, err := RESTConfig(cfg.Kubeconfig)
		if err == nil {
			return NewKubernetesClient(restConfig)
		}
		logging.Debug("Submitter", "No cluster configuration (%v), falling back to filesystem mode", err)
	}
	return NewFilesystemClient(cfg.FilesystemPath)
}

// RESTConfig loads the cluster configuration from kubeconfig, or through the
// controller-runtime lookup (flag, KUBECONFIG, in-cluster, home directory)
// when kubeconfig is empty.
func RESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig %s: %w", kubeconfig, err)
		}
		return cfg, nil
	}
	cfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get Kubernetes config: %w", err)
	}
	return cfg, nil
}
