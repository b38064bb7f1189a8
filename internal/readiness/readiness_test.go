package readiness

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"

	"kfctl-e2e/internal/api"
)

func int32Ptr(i int32) *int32 { return &i }

func deployment(ns, name string, replicas *int32, ready, available int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Spec:       appsv1.DeploymentSpec{Replicas: replicas},
		Status:     appsv1.DeploymentStatus{ReadyReplicas: ready, AvailableReplicas: available},
	}
}

func statefulSet(ns, name string, replicas *int32, ready int32) *appsv1.StatefulSet {
	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Namespace: ns, Name: name},
		Spec:       appsv1.StatefulSetSpec{Replicas: replicas},
		Status:     appsv1.StatefulSetStatus{ReadyReplicas: ready},
	}
}

// describeRecorder replaces the default describe hook.
type describeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *describeRecorder) describe(_ context.Context, kind, namespace, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, kind+"/"+namespace+"/"+name)
}

func newTestProber(objs ...runtime.Object) (*Prober, *describeRecorder) {
	p := NewProber(fake.NewClientset(objs...), 5*time.Millisecond)
	rec := &describeRecorder{}
	p.Describe = rec.describe
	return p, rec
}

func TestWaitForDeploymentReady(t *testing.T) {
	tests := []struct {
		name      string
		obj       *appsv1.Deployment
		wantReady bool
		wantState string
	}{
		{"ready", deployment("kubeflow", "ui", int32Ptr(2), 2, 2), true, ""},
		{"nil replicas needs one", deployment("kubeflow", "ui", nil, 1, 1), true, ""},
		{"zero replicas needs one", deployment("kubeflow", "ui", int32Ptr(0), 0, 0), false, "0/1 ready"},
		{"not available", deployment("kubeflow", "ui", int32Ptr(1), 1, 0), false, "0 available"},
		{"partially ready", deployment("kubeflow", "ui", int32Ptr(3), 2, 2), false, "2/3 ready"},
		{"missing", nil, false, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var objs []runtime.Object
			if tt.obj != nil {
				objs = append(objs, tt.obj)
			}
			p, rec := newTestProber(objs...)

			err := p.WaitForDeploymentReady(context.Background(), "kubeflow", "ui", 30*time.Millisecond)
			if tt.wantReady {
				assert.NoError(t, err)
				assert.Empty(t, rec.calls)
				return
			}
			require.Error(t, err)
			assert.True(t, api.IsTimeout(err))
			var te *api.TimeoutError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, KindDeployment, te.Resource)
			assert.Equal(t, "kubeflow", te.Namespace)
			assert.Equal(t, "ui", te.Name)
			assert.Contains(t, te.LastState, tt.wantState)
			assert.Equal(t, []string{"deployment/kubeflow/ui"}, rec.calls)
		})
	}
}

func TestWaitForStatefulSetReady(t *testing.T) {
	tests := []struct {
		name      string
		obj       *appsv1.StatefulSet
		wantReady bool
	}{
		{"ready", statefulSet("istio-system", "backend-updater", int32Ptr(1), 1), true},
		{"default replicas", statefulSet("istio-system", "backend-updater", nil, 1), true},
		{"not ready", statefulSet("istio-system", "backend-updater", int32Ptr(2), 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rec := newTestProber(tt.obj)
			err := p.WaitForStatefulSetReady(context.Background(), "istio-system", "backend-updater", 30*time.Millisecond)
			if tt.wantReady {
				assert.NoError(t, err)
				return
			}
			assert.True(t, api.IsTimeout(err))
			assert.Equal(t, []string{"statefulset/istio-system/backend-updater"}, rec.calls)
		})
	}
}

func TestWaitForDeploymentReady_BecomesReady(t *testing.T) {
	client := fake.NewClientset(deployment("kubeflow", "ui", int32Ptr(1), 0, 0))
	p := NewProber(client, 5*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = client.AppsV1().Deployments("kubeflow").UpdateStatus(context.Background(),
			deployment("kubeflow", "ui", int32Ptr(1), 1, 1), metav1.UpdateOptions{})
	}()

	assert.NoError(t, p.WaitForDeploymentReady(context.Background(), "kubeflow", "ui", 5*time.Second))
}

func TestDefaultDescribe(t *testing.T) {
	d := deployment("kubeflow", "ui", int32Ptr(1), 0, 0)
	d.Status.Conditions = []appsv1.DeploymentCondition{{Type: appsv1.DeploymentAvailable, Status: "False", Reason: "MinimumReplicasUnavailable"}}
	p := NewProber(fake.NewClientset(d), 5*time.Millisecond)

	err := p.WaitForDeploymentReady(context.Background(), "kubeflow", "ui", 20*time.Millisecond)
	assert.True(t, api.IsTimeout(err))
}

func TestChecksForPlatform(t *testing.T) {
	names := func(checks []Check) []string {
		var out []string
		for _, c := range checks {
			out = append(out, c.Name)
		}
		return out
	}
	common := []string{"katib", "metadata", "pipeline", "notebook", "centraldashboard", "profiles", "pytorch", "tf-job", "istio"}

	tests := []struct {
		platform string
		want     []string
	}{
		{PlatformGCP, append(append([]string{}, common...), "knative", "gcp-ingress")},
		{PlatformExistingArrikto, append(append([]string{}, common...), "dex")},
		{"", append(append([]string{}, common...), "knative")},
	}
	for _, tt := range tests {
		t.Run("platform="+tt.platform, func(t *testing.T) {
			checks := ChecksForPlatform(tt.platform, "kubeflow")
			assert.Equal(t, tt.want, names(checks))
			for _, c := range checks {
				assert.NotZero(t, c.Workloads(), c.Name)
			}
		})
	}

	for _, c := range KubeflowChecks("kf") {
		assert.Equal(t, "kf", c.Namespace)
	}
	assert.Equal(t, IstioNamespace, DexCheck().Namespace)
	assert.Equal(t, []string{"kfserving-controller-manager"}, KnativeCheck().StatefulSets)
}

func TestCheckAll(t *testing.T) {
	checks := []Check{
		{Name: "notebook", Namespace: "kubeflow", Deployments: []string{"jupyter-web-app-deployment", "notebook-controller-deployment"}},
		{Name: "gcp-ingress", Namespace: "istio-system", StatefulSets: []string{"backend-updater"}},
	}

	t.Run("all ready", func(t *testing.T) {
		p, _ := newTestProber(
			deployment("kubeflow", "jupyter-web-app-deployment", int32Ptr(1), 1, 1),
			deployment("kubeflow", "notebook-controller-deployment", int32Ptr(1), 1, 1),
			statefulSet("istio-system", "backend-updater", int32Ptr(1), 1),
		)
		results, err := CheckAll(context.Background(), p, checks, time.Second)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, Result{Check: "notebook", Kind: KindDeployment, Namespace: "kubeflow", Name: "jupyter-web-app-deployment"}, results[0])
		assert.Equal(t, KindStatefulSet, results[2].Kind)
		for _, r := range results {
			assert.True(t, r.Ready(), r.Name)
		}
	})

	t.Run("failures are joined", func(t *testing.T) {
		p, rec := newTestProber(
			deployment("kubeflow", "jupyter-web-app-deployment", int32Ptr(1), 1, 1),
		)
		results, err := CheckAll(context.Background(), p, checks, 30*time.Millisecond)
		require.Error(t, err)
		require.Len(t, results, 3)
		assert.True(t, results[0].Ready())
		assert.False(t, results[1].Ready())
		assert.False(t, results[2].Ready())
		assert.True(t, api.IsTimeout(err))
		assert.Contains(t, err.Error(), "notebook")
		assert.Contains(t, err.Error(), "notebook-controller-deployment")
		assert.Contains(t, err.Error(), "gcp-ingress")
		assert.NotContains(t, err.Error(), "jupyter-web-app-deployment")
		assert.Len(t, rec.calls, 2)
	})
}
