// Package client submits built workflows and tracks them.
//
// WorkflowClient has two backends:
//
//   - Kubernetes: the workflow is converted to an unstructured object of kind
//     argoproj.io/v1alpha1 Workflow and created through a controller-runtime
//     client. No Go types of the workflow engine are registered in a scheme.
//   - Filesystem: the workflow is written as YAML below a directory. This is
//     used for dry runs and when no cluster is reachable.
//
// NewWorkflowClient picks the Kubernetes backend when a cluster configuration
// can be found, unless filesystem mode is forced.
//
// RESTConfig resolves a kubeconfig path, or the standard controller-runtime
// lookup when the path is empty, and is shared with the readiness checks.
package client
