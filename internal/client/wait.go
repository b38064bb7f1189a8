package client

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/pkg/logging"
)

// WaitForCompletion polls a submitted workflow until it reaches a final phase
// or timeout expires. Lookup errors, including a workflow the API server does
// not know yet, are retried. A workflow that did not succeed is returned
// together with an error.
func WaitForCompletion(ctx context.Context, c WorkflowClient, namespace, name string, interval, timeout time.Duration) (*WorkflowStatus, error) {
	if !c.IsKubernetesMode() {
		return nil, fmt.Errorf("workflow %s/%s was not submitted to a cluster", namespace, name)
	}
	var (
		last    *WorkflowStatus
		lastErr error
	)
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		status, err := c.GetWorkflow(ctx, namespace, name)
		if err != nil {
			logging.Debug("Submitter", "Failed to get workflow %s/%s: %v", namespace, name, err)
			lastErr = err
			return false, nil
		}
		lastErr = nil
		if last == nil || last.Phase != status.Phase {
			logging.Info("Submitter", "Workflow %s/%s is %s", namespace, name, phaseString(status.Phase))
		}
		last = status
		return status.Phase.Done(), nil
	})
	if err != nil {
		if wait.Interrupted(err) {
			state := "unknown"
			switch {
			case lastErr != nil:
				state = lastErr.Error()
			case last != nil:
				state = phaseString(last.Phase)
			}
			return last, &api.TimeoutError{
				Resource:  "workflow",
				Namespace: namespace,
				Name:      name,
				Timeout:   timeout,
				LastState: state,
			}
		}
		return last, err
	}
	if last.Phase != PhaseSucceeded {
		return last, fmt.Errorf("workflow %s/%s finished with phase %s: %s", namespace, name, last.Phase, last.Message)
	}
	return last, nil
}

func phaseString(p Phase) string {
	if p == PhaseUnknown {
		return "not started"
	}
	return string(p)
}
