package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"kfctl-e2e/pkg/logging"
)

const (
	PlatformGCP             = "gcp"
	PlatformExistingArrikto = "existing_arrikto"

	IstioNamespace   = "istio-system"
	KnativeNamespace = "knative-serving"
)

// Check is a named group of workloads that must all be ready.
type Check struct {
	Name         string
	Namespace    string
	Deployments  []string
	StatefulSets []string
}

// Workloads returns the number of workloads in the check.
func (c Check) Workloads() int {
	return len(c.Deployments) + len(c.StatefulSets)
}

// KubeflowChecks returns the checks for the components installed in the
// Kubeflow namespace.
func KubeflowChecks(namespace string) []Check {
	return []Check{
		{Name: "katib", Namespace: namespace, Deployments: []string{
			"katib-controller",
			"katib-mysql",
			"katib-db-manager",
			"katib-ui",
		}},
		{Name: "metadata", Namespace: namespace, Deployments: []string{
			"metadata-deployment",
			"metadata-grpc-deployment",
			"metadata-db",
			"metadata-ui",
		}},
		{Name: "pipeline", Namespace: namespace, Deployments: []string{
			"argo-ui",
			"workflow-controller",
			"minio",
			"mysql",
			"ml-pipeline",
			"ml-pipeline-persistenceagent",
			"ml-pipeline-scheduledworkflow",
			"ml-pipeline-ui",
			"ml-pipeline-viewer-crd",
			"ml-pipeline-visualizationserver",
			"cache-deployer-deployment",
			"cache-server",
		}},
		{Name: "notebook", Namespace: namespace, Deployments: []string{
			"jupyter-web-app-deployment",
			"notebook-controller-deployment",
		}},
		{Name: "centraldashboard", Namespace: namespace, Deployments: []string{"centraldashboard"}},
		{Name: "profiles", Namespace: namespace, Deployments: []string{"profiles-deployment"}},
		{Name: "pytorch", Namespace: namespace, Deployments: []string{"pytorch-operator"}},
		{Name: "tf-job", Namespace: namespace, Deployments: []string{"tf-job-operator"}},
	}
}

// IstioCheck covers the istio control plane. Egress gateways are not
// installed by default and are not checked.
func IstioCheck() Check {
	return Check{Name: "istio", Namespace: IstioNamespace, Deployments: []string{
		"istio-ingressgateway",
		"istio-pilot",
		"istio-sidecar-injector",
	}}
}

// KnativeCheck covers knative serving and the kfserving controller.
func KnativeCheck() Check {
	return Check{
		Name:         "knative",
		Namespace:    KnativeNamespace,
		Deployments:  []string{"activator", "autoscaler", "controller"},
		StatefulSets: []string{"kfserving-controller-manager"},
	}
}

// DexCheck covers the identity provider of the existing_arrikto platform.
func DexCheck() Check {
	return Check{Name: "dex", Namespace: IstioNamespace, Deployments: []string{"dex", "authservice"}}
}

// GCPIngressCheck covers the services fronting a GCP deployment.
func GCPIngressCheck() Check {
	return Check{
		Name:         "gcp-ingress",
		Namespace:    IstioNamespace,
		Deployments:  []string{"cloud-endpoints-controller", "iap-enabler"},
		StatefulSets: []string{"backend-updater"},
	}
}

// ChecksForPlatform returns every check that applies to platform. Knative is
// skipped on existing_arrikto, dex only runs there and the ingress services
// only on gcp.
func ChecksForPlatform(platform, namespace string) []Check {
	checks := append(KubeflowChecks(namespace), IstioCheck())
	if platform != PlatformExistingArrikto {
		checks = append(checks, KnativeCheck())
	}
	if platform == PlatformExistingArrikto {
		checks = append(checks, DexCheck())
	}
	if platform == PlatformGCP {
		checks = append(checks, GCPIngressCheck())
	}
	return checks
}

// Result is the outcome of waiting for one workload.
type Result struct {
	Check     string
	Kind      string
	Namespace string
	Name      string
	Err       error
}

// Ready reports whether the workload became ready.
func (r Result) Ready() bool { return r.Err == nil }

// CheckAll waits for every workload of checks in parallel, each with its own
// timeout. Results are returned in check order and all failures are joined;
// a single failure does not cancel the other waits.
func CheckAll(ctx context.Context, p *Prober, checks []Check, timeout time.Duration) ([]Result, error) {
	var results []Result
	for _, c := range checks {
		for _, d := range c.Deployments {
			results = append(results, Result{Check: c.Name, Kind: KindDeployment, Namespace: c.Namespace, Name: d})
		}
		for _, s := range c.StatefulSets {
			results = append(results, Result{Check: c.Name, Kind: KindStatefulSet, Namespace: c.Namespace, Name: s})
		}
	}

	var g errgroup.Group
	for i := range results {
		r := &results[i]
		g.Go(func() error {
			if r.Kind == KindDeployment {
				r.Err = p.WaitForDeploymentReady(ctx, r.Namespace, r.Name, timeout)
			} else {
				r.Err = p.WaitForStatefulSetReady(ctx, r.Namespace, r.Name, timeout)
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Check, r.Err))
		}
	}
	if len(errs) == 0 {
		logging.Info("Readiness", "All %d workloads are ready", len(results))
	}
	return results, errors.Join(errs...)
}
