package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/internal/formatting"
	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
	"kfctl-e2e/pkg/logging"
)

// filesystemClient implements WorkflowClient by writing YAML files to
// <basePath>/<namespace>/<name>.yaml.
type filesystemClient struct {
	basePath string
}

// NewFilesystemClient creates a filesystem backed client rooted at basePath,
// which defaults to the current directory.
func NewFilesystemClient(basePath string) (WorkflowClient, error) {
	if basePath == "" {
		basePath = "."
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", basePath, err)
	}
	return &filesystemClient{basePath: abs}, nil
}

func (f *filesystemClient) path(namespace, name string) string {
	return filepath.Join(f.basePath, namespace, name+".yaml")
}

// CreateWorkflow writes the workflow; an existing file is an error, as an
// existing object would be in a cluster.
func (f *filesystemClient) CreateWorkflow(ctx context.Context, wf *argov1.Workflow) error {
	data, err := formatting.Marshal(wf, formatting.FormatYAML)
	if err != nil {
		return err
	}
	p := f.path(wf.Namespace, wf.Name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	file, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("workflow %s/%s already exists at %s", wf.Namespace, wf.Name, p)
		}
		return fmt.Errorf("failed to create %s: %w", p, err)
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	logging.Info("Submitter", "Wrote workflow %s/%s to %s", wf.Namespace, wf.Name, p)
	return nil
}

// GetWorkflow checks that the workflow was written. The phase is always
// unknown since nothing executes it.
func (f *filesystemClient) GetWorkflow(ctx context.Context, namespace, name string) (*WorkflowStatus, error) {
	data, err := os.ReadFile(f.path(namespace, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, api.NewNotFoundError("workflow", namespace+"/"+name)
		}
		return nil, err
	}
	if _, err := formatting.Unmarshal(data); err != nil {
		return nil, err
	}
	return &WorkflowStatus{Name: name, Namespace: namespace, Phase: PhaseUnknown}, nil
}

// DeleteWorkflow removes the workflow file.
func (f *filesystemClient) DeleteWorkflow(ctx context.Context, namespace, name string) error {
	if err := os.Remove(f.path(namespace, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return api.NewNotFoundError("workflow", namespace+"/"+name)
		}
		return err
	}
	return nil
}

// IsKubernetesMode returns false for the filesystem implementation.
func (f *filesystemClient) IsKubernetesMode() bool {
	return false
}
