package readiness

import (
	"context"
	"fmt"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/pkg/logging"
)

const (
	KindDeployment  = "deployment"
	KindStatefulSet = "statefulset"

	DefaultInterval = 10 * time.Second
)

// DescribeFunc dumps diagnostic information about a workload that failed to
// become ready.
type DescribeFunc func(ctx context.Context, kind, namespace, name string)

// Prober waits for workloads to become ready.
type Prober struct {
	client   kubernetes.Interface
	interval time.Duration

	// Describe runs before a TimeoutError is returned. It defaults to
	// logging the workload's conditions and recent events.
	Describe DescribeFunc
}

// NewProber creates a prober polling every interval. A non-positive interval
// uses DefaultInterval.
func NewProber(client kubernetes.Interface, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Prober{client: client, interval: interval}
	p.Describe = p.describe
	return p
}

// WaitForDeploymentReady waits until the deployment has at least
// max(1, spec.replicas) ready and available replicas.
func (p *Prober) WaitForDeploymentReady(ctx context.Context, namespace, name string, timeout time.Duration) error {
	return p.wait(ctx, KindDeployment, namespace, name, timeout, func(ctx context.Context) (bool, string, error) {
		d, err := p.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, "", err
		}
		want := int32(1)
		if d.Spec.Replicas != nil && *d.Spec.Replicas > want {
			want = *d.Spec.Replicas
		}
		state := fmt.Sprintf("%d/%d ready, %d available", d.Status.ReadyReplicas, want, d.Status.AvailableReplicas)
		return d.Status.ReadyReplicas >= want && d.Status.AvailableReplicas >= want, state, nil
	})
}

// WaitForStatefulSetReady waits until the statefulset has spec.replicas ready
// replicas.
func (p *Prober) WaitForStatefulSetReady(ctx context.Context, namespace, name string, timeout time.Duration) error {
	return p.wait(ctx, KindStatefulSet, namespace, name, timeout, func(ctx context.Context) (bool, string, error) {
		s, err := p.client.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, "", err
		}
		want := int32(1)
		if s.Spec.Replicas != nil {
			want = *s.Spec.Replicas
		}
		state := fmt.Sprintf("%d/%d ready", s.Status.ReadyReplicas, want)
		return s.Status.ReadyReplicas >= want, state, nil
	})
}

type probeFunc func(ctx context.Context) (ready bool, state string, err error)

func (p *Prober) wait(ctx context.Context, kind, namespace, name string, timeout time.Duration, probe probeFunc) error {
	logging.Info("Readiness", "Verifying that %s %s.%s started...", kind, namespace, name)
	lastState := "not observed"
	err := wait.PollUntilContextTimeout(ctx, p.interval, timeout, true, func(ctx context.Context) (bool, error) {
		ready, state, err := probe(ctx)
		if err != nil {
			if apierrors.IsNotFound(err) {
				lastState = "not found"
				return false, nil
			}
			// Transient API errors are retried until the timeout.
			logging.Debug("Readiness", "Failed to get %s %s.%s: %v", kind, namespace, name, err)
			lastState = err.Error()
			return false, nil
		}
		lastState = state
		return ready, nil
	})
	if err == nil {
		logging.Info("Readiness", "%s %s.%s is ready", kind, namespace, name)
		return nil
	}
	if !wait.Interrupted(err) {
		return err
	}
	if p.Describe != nil {
		// The caller's context may be what expired; the dump gets its own.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		p.Describe(dctx, kind, namespace, name)
		cancel()
	}
	return &api.TimeoutError{
		Resource:  kind,
		Namespace: namespace,
		Name:      name,
		Timeout:   timeout,
		LastState: lastState,
	}
}

// describe logs the conditions and the events of a workload.
func (p *Prober) describe(ctx context.Context, kind, namespace, name string) {
	var conditions []string
	switch kind {
	case KindDeployment:
		d, err := p.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			logging.Warn("Readiness", "Cannot describe %s %s.%s: %v", kind, namespace, name, err)
			return
		}
		for _, c := range d.Status.Conditions {
			conditions = append(conditions, fmt.Sprintf("%s=%s (%s: %s)", c.Type, c.Status, c.Reason, c.Message))
		}
	case KindStatefulSet:
		s, err := p.client.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			logging.Warn("Readiness", "Cannot describe %s %s.%s: %v", kind, namespace, name, err)
			return
		}
		for _, c := range s.Status.Conditions {
			conditions = append(conditions, fmt.Sprintf("%s=%s (%s: %s)", c.Type, c.Status, c.Reason, c.Message))
		}
	}
	logging.Warn("Readiness", "%s %s.%s conditions: [%s]", kind, namespace, name, strings.Join(conditions, "; "))

	events, err := p.client.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: "involvedObject.name=" + name,
	})
	if err != nil {
		logging.Warn("Readiness", "Cannot list events of %s.%s: %v", namespace, name, err)
		return
	}
	for _, e := range events.Items {
		logging.Warn("Readiness", "%s %s.%s event: %s %s: %s", kind, namespace, name, e.Type, e.Reason, e.Message)
	}
}
