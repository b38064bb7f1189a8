// Package readiness polls Kubeflow workloads until they report ready.
//
// A Prober waits for single deployments or statefulsets; CheckAll fans a set
// of Checks out in parallel and joins their failures. The workload lists for
// each component live in checks.go and are selected per platform with
// ChecksForPlatform.
//
// A workload that does not become ready in time yields an *api.TimeoutError
// carrying the last observed state. Before returning it the prober runs its
// Describe hook so the step's log contains a diagnostic dump.
package readiness
