package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"kfctl-e2e/internal/api"
	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
)

// lateClient reports the workflow as missing for its first misses lookups.
type lateClient struct {
	WorkflowClient
	misses int
	calls  int
}

func (c *lateClient) GetWorkflow(ctx context.Context, namespace, name string) (*WorkflowStatus, error) {
	c.calls++
	if c.calls <= c.misses {
		return nil, api.NewNotFoundError("workflow", namespace+"/"+name)
	}
	return c.WorkflowClient.GetWorkflow(ctx, namespace, name)
}
func testWorkflow() *argov1.Workflow {
	return &argov1.Workflow{
		TypeMeta:   metav1.TypeMeta{APIVersion: argov1.SchemeGroupVersion.String(), Kind: argov1.WorkflowKind},
		ObjectMeta: metav1.ObjectMeta{Name: "kfctl-e2e-1", Namespace: "kubeflow-test-infra"},
		Spec: argov1.WorkflowSpec{
			Entrypoint: "e2e",
			OnExit:     "exit-handler",
			Templates: []argov1.Template{
				{Name: "e2e", DAG: &argov1.DAGTemplate{Tasks: []argov1.DAGTask{{Name: "checkout", Template: "checkout"}}}},
				{Name: "exit-handler", DAG: &argov1.DAGTemplate{Tasks: []argov1.DAGTask{}}},
				{Name: "checkout", Container: &corev1.Container{Image: "worker", Command: []string{"checkout.sh"}}},
			},
		},
	}
}

func newFakeClient(objs ...client.Object) client.Client {
	mapper := meta.NewDefaultRESTMapper([]schema.GroupVersion{argov1.SchemeGroupVersion})
	mapper.Add(argov1.WorkflowGVK, meta.RESTScopeNamespace)
	return fake.NewClientBuilder().WithRESTMapper(mapper).WithObjects(objs...).Build()
}

func workflowWithPhase(t *testing.T, phase string) *unstructured.Unstructured {
	t.Helper()
	u, err := ToUnstructured(testWorkflow())
	require.NoError(t, err)
	if phase != "" {
		require.NoError(t, unstructured.SetNestedField(u.Object, phase, "status", "phase"))
	}
	return u
}

func TestToUnstructured(t *testing.T) {
	u, err := ToUnstructured(testWorkflow())
	require.NoError(t, err)

	assert.Equal(t, "argoproj.io/v1alpha1", u.GetAPIVersion())
	assert.Equal(t, "Workflow", u.GetKind())
	assert.Equal(t, "kfctl-e2e-1", u.GetName())

	entrypoint, found, err := unstructured.NestedString(u.Object, "spec", "entrypoint")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "e2e", entrypoint)

	templates, found, err := unstructured.NestedSlice(u.Object, "spec", "templates")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, templates, 3)
}

func TestKubernetesClient_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewKubernetesClientFrom(newFakeClient())
	assert.True(t, c.IsKubernetesMode())

	require.NoError(t, c.CreateWorkflow(ctx, testWorkflow()))

	status, err := c.GetWorkflow(ctx, "kubeflow-test-infra", "kfctl-e2e-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseUnknown, status.Phase)

	assert.Error(t, c.CreateWorkflow(ctx, testWorkflow()), "creating twice fails")

	require.NoError(t, c.DeleteWorkflow(ctx, "kubeflow-test-infra", "kfctl-e2e-1"))
	_, err = c.GetWorkflow(ctx, "kubeflow-test-infra", "kfctl-e2e-1")
	assert.True(t, api.IsNotFound(err))
	assert.True(t, api.IsNotFound(c.DeleteWorkflow(ctx, "kubeflow-test-infra", "kfctl-e2e-1")))
}

func TestKubernetesClient_Phase(t *testing.T) {
	c := NewKubernetesClientFrom(newFakeClient(workflowWithPhase(t, "Running")))

	status, err := c.GetWorkflow(context.Background(), "kubeflow-test-infra", "kfctl-e2e-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseRunning, status.Phase)
	assert.False(t, status.Phase.Done())
}

func TestWaitForCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeded", func(t *testing.T) {
		c := NewKubernetesClientFrom(newFakeClient(workflowWithPhase(t, "Succeeded")))
		status, err := WaitForCompletion(ctx, c, "kubeflow-test-infra", "kfctl-e2e-1", 10*time.Millisecond, time.Second)
		require.NoError(t, err)
		assert.Equal(t, PhaseSucceeded, status.Phase)
	})

	t.Run("failed", func(t *testing.T) {
		c := NewKubernetesClientFrom(newFakeClient(workflowWithPhase(t, "Failed")))
		status, err := WaitForCompletion(ctx, c, "kubeflow-test-infra", "kfctl-e2e-1", 10*time.Millisecond, time.Second)
		require.Error(t, err)
		assert.False(t, api.IsTimeout(err))
		assert.Equal(t, PhaseFailed, status.Phase)
	})

	t.Run("timeout", func(t *testing.T) {
		c := NewKubernetesClientFrom(newFakeClient(workflowWithPhase(t, "Running")))
		_, err := WaitForCompletion(ctx, c, "kubeflow-test-infra", "kfctl-e2e-1", 10*time.Millisecond, 50*time.Millisecond)
		require.Error(t, err)
		assert.True(t, api.IsTimeout(err))
		assert.Contains(t, err.Error(), "Running")
	})

	t.Run("workflow shows up late", func(t *testing.T) {
		c := &lateClient{WorkflowClient: NewKubernetesClientFrom(newFakeClient(workflowWithPhase(t, "Succeeded"))), misses: 2}
		status, err := WaitForCompletion(ctx, c, "kubeflow-test-infra", "kfctl-e2e-1", time.Millisecond, time.Second)
		require.NoError(t, err)
		assert.Equal(t, PhaseSucceeded, status.Phase)
		assert.Equal(t, 3, c.calls)
	})

	t.Run("missing workflow times out", func(t *testing.T) {
		c := NewKubernetesClientFrom(newFakeClient())
		_, err := WaitForCompletion(ctx, c, "kubeflow-test-infra", "kfctl-e2e-1", 10*time.Millisecond, 50*time.Millisecond)
		require.Error(t, err)
		assert.True(t, api.IsTimeout(err))
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("filesystem", func(t *testing.T) {
		c, err := NewFilesystemClient(t.TempDir())
		require.NoError(t, err)
		_, err = WaitForCompletion(ctx, c, "ns", "wf", time.Millisecond, time.Millisecond)
		assert.Error(t, err)
	})
}

func TestFilesystemClient(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewWorkflowClient(Config{FilesystemPath: dir, ForceFilesystemMode: true})
	require.NoError(t, err)
	assert.False(t, c.IsKubernetesMode())

	require.NoError(t, c.CreateWorkflow(ctx, testWorkflow()))
	assert.FileExists(t, dir+"/kubeflow-test-infra/kfctl-e2e-1.yaml")
	assert.Error(t, c.CreateWorkflow(ctx, testWorkflow()))

	status, err := c.GetWorkflow(ctx, "kubeflow-test-infra", "kfctl-e2e-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseUnknown, status.Phase)

	require.NoError(t, c.DeleteWorkflow(ctx, "kubeflow-test-infra", "kfctl-e2e-1"))
	_, err = c.GetWorkflow(ctx, "kubeflow-test-infra", "kfctl-e2e-1")
	assert.True(t, api.IsNotFound(err))
}
