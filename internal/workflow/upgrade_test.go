package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/internal/dag"
)

func TestUpgradeBuilder(t *testing.T) {
	tests := []struct {
		name            string
		testEndpoint    bool
		wantUpgradeDeps []string
	}{
		{name: "endpoint disabled", wantUpgradeDeps: []string{StepRunTests}},
		{name: "endpoint enabled", testEndpoint: true, wantUpgradeDeps: []string{StepRunTests, StepEndpointReady}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.TestEndpoint = tt.testEndpoint
			doc, err := NewUpgradeBuilder(cfg, "").Build()
			require.NoError(t, err)
			wf := doc.Workflow()
			require.NoError(t, dag.Validate(wf))

			assert.Equal(t, UpgradeTemplateLabel, wf.Labels["workflow_template"])
			for _, tmpl := range wf.Spec.Templates {
				assert.Equal(t, UpgradeTemplateLabel, tmpl.Metadata.Labels["workflow_template"], tmpl.Name)
			}

			assert.Equal(t, []string{StepUpgrade}, taskNames(wf, UpgradeDAG))
			upgrade := wf.Template(StepUpgrade)
			require.NotNil(t, upgrade)
			assert.Contains(t, upgrade.Container.Command, "--upgrade_spec_path="+DefaultUpgradeSpecPath)

			invoke := task(t, wf, dag.EntryDAG, UpgradeDAG)
			assert.Equal(t, UpgradeDAG, invoke.Template)
			assert.Equal(t, tt.wantUpgradeDeps, invoke.Dependencies)

			ready := task(t, wf, dag.EntryDAG, StepReadyAfterUpgrade)
			assert.Equal(t, StepKubeflowReady, ready.Template)
			assert.Equal(t, []string{UpgradeDAG}, ready.Dependencies)

			rerun := task(t, wf, dag.EntryDAG, StepTestAfterUpgrade)
			assert.Equal(t, dag.TestsDAG, rerun.Template)
			assert.Equal(t, []string{StepReadyAfterUpgrade}, rerun.Dependencies)

			if tt.testEndpoint {
				endpoint := task(t, wf, dag.EntryDAG, StepUpgradedEndpointReady)
				assert.Equal(t, StepEndpointReady, endpoint.Template)
				assert.Equal(t, []string{UpgradeDAG}, endpoint.Dependencies)
			} else {
				assert.NotContains(t, taskNames(wf, dag.EntryDAG), StepUpgradedEndpointReady)
			}
		})
	}
}

func TestUpgradeBuilderValidatesAppName(t *testing.T) {
	cfg := testConfig()
	cfg.AppName = "this-app-name-is-too-long"
	_, err := NewUpgradeBuilder(cfg, "spec.yaml").Build()
	assert.True(t, api.IsValidation(err))
}
