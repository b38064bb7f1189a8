package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/internal/config"
	"kfctl-e2e/internal/dag"
	"kfctl-e2e/internal/workflow"
	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
)

func parseWorkflowFlags(t *testing.T, args ...string) (*workflowFlags, *pflag.FlagSet) {
	t.Helper()
	f := &workflowFlags{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse(args))
	return f, fs
}

func TestWorkflowFlags_Merge(t *testing.T) {
	no := false
	file := config.WorkflowConfig{
		Name:       "from-file",
		AppName:    "file-app",
		Project:    "file-project",
		DeleteKF:   &no,
		ExtraRepos: []string{"kubeflow/manifests@v1.0"},
	}

	t.Run("file values win over flag defaults", func(t *testing.T) {
		f, fs := parseWorkflowFlags(t)
		cfg := f.merge(fs, file)
		assert.Equal(t, "from-file", cfg.Name)
		assert.Equal(t, "file-project", cfg.Project)
		assert.Equal(t, workflow.DefaultNamespace, cfg.Namespace)
		assert.False(t, cfg.ShouldDelete())
		assert.Equal(t, []string{"kubeflow/manifests@v1.0"}, cfg.ExtraRepos)
	})

	t.Run("set flags override the file", func(t *testing.T) {
		f, fs := parseWorkflowFlags(t,
			"--name=from-flag", "--project=flag-project", "--delete-kf=true",
			"--extra-repos=kubeflow/kfctl@abc,kubeflow/testing@HEAD", "--test-endpoint", "--upgrade")
		cfg := f.merge(fs, file)
		assert.Equal(t, "from-flag", cfg.Name)
		assert.Equal(t, "file-app", cfg.AppName)
		assert.Equal(t, "flag-project", cfg.Project)
		assert.True(t, cfg.ShouldDelete())
		assert.True(t, cfg.TestEndpoint)
		assert.True(t, cfg.Upgrade)
		assert.Equal(t, []string{"kubeflow/kfctl@abc", "kubeflow/testing@HEAD"}, cfg.ExtraRepos)
	})
}

func TestBuildWorkflow(t *testing.T) {
	base := config.WorkflowConfig{Name: "kfctl-e2e-1", AppName: "kfctl-ab12"}

	wf, err := buildWorkflow(base, workflow.CIContext{})
	require.NoError(t, err)
	assert.Equal(t, workflow.TemplateLabel, wf.Labels["workflow_template"])
	assert.Nil(t, findTemplate(wf, workflow.UpgradeDAG))

	upgrade := base
	upgrade.Upgrade = true
	wf, err = buildWorkflow(upgrade, workflow.CIContext{})
	require.NoError(t, err)
	assert.Equal(t, workflow.UpgradeTemplateLabel, wf.Labels["workflow_template"])
	assert.NotNil(t, findTemplate(wf, workflow.UpgradeDAG))
	assert.NoError(t, dag.Validate(wf))

	_, err = buildWorkflow(config.WorkflowConfig{Name: "kfctl-e2e-1", AppName: "an-app-name-that-is-too-long"}, workflow.CIContext{})
	assert.True(t, api.IsValidation(err))
}

func TestBuildCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"build", "--name=kfctl-e2e-7", "--app-name=kfctl-cd34", "-o", "json"})

	require.NoError(t, rootCmd.Execute())

	var wf argov1.Workflow
	require.NoError(t, json.Unmarshal(out.Bytes(), &wf))
	assert.Equal(t, "kfctl-e2e-7", wf.Name)
	assert.Equal(t, "e2e", wf.Spec.Entrypoint)
	assert.Equal(t, "exit-handler", wf.Spec.OnExit)
}

func findTemplate(wf *argov1.Workflow, name string) *argov1.Template {
	for i := range wf.Spec.Templates {
		if wf.Spec.Templates[i].Name == name {
			return &wf.Spec.Templates[i]
		}
	}
	return nil
}

func TestIsTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	assert.False(t, isTerminal(f), "a regular file is not a terminal")

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(); w.Close() })
	assert.False(t, isTerminal(w), "a pipe is not a terminal")
}
