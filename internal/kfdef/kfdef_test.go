package kfdef

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kfctl-e2e/internal/api"
)

const gcpKfDef = `apiVersion: kfdef.apps.kubeflow.org/v1
kind: KfDef
metadata:
  name: kfctl-ab12
  namespace: kubeflow
  clusterName: kubeflow-ci-deployment_kfctl-ab12
spec:
  applications:
  - name: istio-crds
    kustomizeConfig:
      repoRef:
        name: manifests
        path: istio/istio-crds
  plugins:
  - kind: KfGcpPlugin
    metadata:
      name: gcp
    spec:
      project: kubeflow-ci-deployment
`

func TestPlatform(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"v1 gcp plugin", gcpKfDef, PlatformGCP, false},
		{"v1beta1 arrikto plugin", "apiVersion: kfdef.apps.kubeflow.org/v1beta1\nspec:\n  plugins:\n  - kind: KfExistingArriktoPlugin\n", PlatformExistingArrikto, false},
		{"v1beta1 unknown plugin", "apiVersion: kfdef.apps.kubeflow.org/v1beta1\nspec:\n  plugins:\n  - kind: KfAwsPlugin\n", "", false},
		{"v1beta1 no plugins", "apiVersion: kfdef.apps.kubeflow.org/v1beta1\nspec: {}\n", "", false},
		{"v1alpha1 spec platform", "apiVersion: kfdef.apps.kubeflow.org/v1alpha1\nspec:\n  platform: gcp\n", PlatformGCP, false},
		{"apiVersion with spaces", "apiVersion: ' kfdef.apps.kubeflow.org/v1 '\nspec:\n  plugins:\n  - kind: KfGcpPlugin\n", PlatformGCP, false},
		{"apiVersion without group", "apiVersion: v1\n", "", true},
		{"unknown version", "apiVersion: kfdef.apps.kubeflow.org/v2\n", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := Parse([]byte(tt.content))
			require.NoError(t, err)
			got, err := k.Platform()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, content := range []string{"- a\n- b\n", "key: [", ""} {
		_, err := Parse([]byte(content))
		assert.Error(t, err, content)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFile(dir)
	assert.True(t, api.IsNotFound(err))

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(gcpKfDef), 0644))
	k, err := LoadFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), k.Path())
	assert.Equal(t, "kfctl-ab12", k.Name())
	assert.Equal(t, "kubeflow-ci-deployment_kfctl-ab12", k.ClusterName())
}

func TestSetClusterNameAndSave(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(gcpKfDef), 0644))
	k, err := LoadFile(dir)
	require.NoError(t, err)

	k.SetClusterName("dummy")
	assert.Equal(t, "dummy", k.ClusterName())
	require.NoError(t, k.Save())

	reloaded, err := LoadFile(dir)
	require.NoError(t, err)
	assert.Equal(t, "dummy", reloaded.ClusterName())
	platform, err := reloaded.Platform()
	require.NoError(t, err)
	assert.Equal(t, PlatformGCP, platform)

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "path: istio/istio-crds", "unmodelled fields survive")

	reloaded.SetClusterName("kubeflow-ci-deployment_kfctl-ab12")
	require.NoError(t, reloaded.Save())
	data, err = os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.YAMLEq(t, gcpKfDef, string(data))
}

func TestSetClusterName_MissingMetadata(t *testing.T) {
	k, err := Parse([]byte("apiVersion: kfdef.apps.kubeflow.org/v1\n"))
	require.NoError(t, err)
	assert.Empty(t, k.ClusterName())

	k.SetClusterName("c1")
	data, err := k.Marshal()
	require.NoError(t, err)
	assert.YAMLEq(t, "apiVersion: kfdef.apps.kubeflow.org/v1\nmetadata:\n  clusterName: c1\n", string(data))
	assert.Error(t, k.Save(), "not backed by a file")
}
