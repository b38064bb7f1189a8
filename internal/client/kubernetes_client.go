package client

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"kfctl-e2e/internal/api"
	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
	"kfctl-e2e/pkg/logging"
)

// kubernetesClient implements WorkflowClient on top of controller-runtime.
type kubernetesClient struct {
	client client.Client
}

// NewKubernetesClient creates a client for the cluster described by config.
func NewKubernetesClient(config *rest.Config) (WorkflowClient, error) {
	c, err := client.New(config, client.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	return &kubernetesClient{client: c}, nil
}

// NewKubernetesClientFrom wraps an existing controller-runtime client.
func NewKubernetesClientFrom(c client.Client) WorkflowClient {
	return &kubernetesClient{client: c}
}

// ToUnstructured converts a typed workflow into the object the API server
// receives.
func ToUnstructured(wf *argov1.Workflow) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(wf)
	if err != nil {
		return nil, fmt.Errorf("failed to convert workflow %s: %w", wf.Name, err)
	}
	u := &unstructured.Unstructured{Object: content}
	u.SetGroupVersionKind(argov1.WorkflowGVK)
	return u, nil
}

// CreateWorkflow creates a new Workflow in Kubernetes.
func (k *kubernetesClient) CreateWorkflow(ctx context.Context, wf *argov1.Workflow) error {
	u, err := ToUnstructured(wf)
	if err != nil {
		return err
	}
	if err := k.client.Create(ctx, u); err != nil {
		return fmt.Errorf("failed to create Workflow %s/%s: %w", wf.Namespace, wf.Name, err)
	}
	logging.Info("Submitter", "Created workflow %s/%s", wf.Namespace, wf.Name)
	return nil
}

// GetWorkflow retrieves the status of a Workflow.
func (k *kubernetesClient) GetWorkflow(ctx context.Context, namespace, name string) (*WorkflowStatus, error) {
	u := newWorkflowObject(namespace, name)
	if err := k.client.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, u); err != nil {
		if client.IgnoreNotFound(err) == nil {
			return nil, api.NewNotFoundError("workflow", namespace+"/"+name)
		}
		return nil, fmt.Errorf("failed to get Workflow %s/%s: %w", namespace, name, err)
	}

	phase, _, _ := unstructured.NestedString(u.Object, "status", "phase")
	message, _, _ := unstructured.NestedString(u.Object, "status", "message")
	return &WorkflowStatus{
		Name:      name,
		Namespace: namespace,
		Phase:     Phase(phase),
		Message:   message,
	}, nil
}

// DeleteWorkflow deletes a Workflow from Kubernetes.
func (k *kubernetesClient) DeleteWorkflow(ctx context.Context, namespace, name string) error {
	if err := k.client.Delete(ctx, newWorkflowObject(namespace, name)); err != nil {
		if client.IgnoreNotFound(err) == nil {
			return api.NewNotFoundError("workflow", namespace+"/"+name)
		}
		return fmt.Errorf("failed to delete Workflow %s/%s: %w", namespace, name, err)
	}
	return nil
}

// IsKubernetesMode returns true since this is the Kubernetes implementation.
func (k *kubernetesClient) IsKubernetesMode() bool {
	return true
}

func newWorkflowObject(namespace, name string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(argov1.WorkflowGVK)
	u.SetNamespace(namespace)
	u.SetName(name)
	return u
}
