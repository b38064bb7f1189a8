package workflow

import (
	"kfctl-e2e/internal/dag"
	"kfctl-e2e/pkg/logging"
)

const (
	// UpgradeDAG holds the steps that upgrade the deployment.
	UpgradeDAG = "upgrade-dag"

	// UpgradeTemplateLabel is the workflow_template label of the upgrade
	// workflow.
	UpgradeTemplateLabel = "kfctl_upgrade_e2e"

	DefaultUpgradeSpecPath = "https://raw.githubusercontent.com/kubeflow/manifests/v0.7-branch/kfdef/kfctl_upgrade_gcp_iap_0.7.1.yaml"

	StepUpgrade               = "upgrade"
	StepReadyAfterUpgrade     = "ready-after-upgrade"
	StepTestAfterUpgrade      = "test-after-upgrade"
	StepUpgradedEndpointReady = "upgraded-endpoint-ready"
)

// UpgradeBuilder builds the base workflow and then upgrades the deployment,
// checks it is ready again and reruns the tests DAG against it.
type UpgradeBuilder struct {
	*Builder

	// UpgradeSpecPath is the KfDef spec the deployment is upgraded to.
	UpgradeSpecPath string
}

// NewUpgradeBuilder returns an UpgradeBuilder for cfg.
func NewUpgradeBuilder(cfg Config, upgradeSpecPath string) *UpgradeBuilder {
	if upgradeSpecPath == "" {
		upgradeSpecPath = DefaultUpgradeSpecPath
	}
	return &UpgradeBuilder{Builder: NewBuilder(cfg), UpgradeSpecPath: upgradeSpecPath}
}

// Build constructs the upgrade workflow.
func (u *UpgradeBuilder) Build() (*dag.Document, error) {
	doc, err := u.Builder.Build()
	if err != nil {
		return nil, err
	}
	doc.SetLabel("workflow_template", UpgradeTemplateLabel)

	if err := doc.AddDAG(UpgradeDAG); err != nil {
		return nil, err
	}
	configName := u.cfg.configName()
	upgrade := u.pytestStep(StepUpgrade, "kfctl_upgrade_test.py",
		"--app_path="+u.layout.AppDir,
		"--kfctl_path="+u.layout.KfctlPath,
		"--upgrade_spec_path="+u.UpgradeSpecPath,
		u.junit("kfctl-upgrade-test-"+configName),
		"-o", "junit_suite_name=test_kfctl_upgrade_"+configName,
	)
	if _, err := doc.InsertTask(UpgradeDAG, upgrade); err != nil {
		return nil, err
	}

	deps := []string{StepRunTests}
	if u.endpointStep != "" {
		deps = append(deps, u.endpointStep)
	}
	if err := doc.InsertSubDAGInvocation(dag.EntryDAG, UpgradeDAG, UpgradeDAG, deps...); err != nil {
		return nil, err
	}
	if err := doc.InsertTaskReference(dag.EntryDAG, StepReadyAfterUpgrade, StepKubeflowReady, UpgradeDAG); err != nil {
		return nil, err
	}
	if err := doc.InsertSubDAGInvocation(dag.EntryDAG, StepTestAfterUpgrade, dag.TestsDAG, StepReadyAfterUpgrade); err != nil {
		return nil, err
	}
	if u.endpointStep != "" {
		if err := doc.InsertTaskReference(dag.EntryDAG, StepUpgradedEndpointReady, u.endpointStep, UpgradeDAG); err != nil {
			return nil, err
		}
	}

	// Pick up the changed workflow_template label.
	doc.ApplyTemplateLabels()
	logging.Info("WorkflowBuilder", "Added upgrade steps to workflow %s (spec %s)", u.cfg.Name, u.UpgradeSpecPath)
	return doc, nil
}
