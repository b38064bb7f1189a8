package workflow

import (
	"fmt"
	"path"

	"kfctl-e2e/internal/config"
	"kfctl-e2e/internal/dag"
	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
	"kfctl-e2e/pkg/logging"
)

// Step names of the base workflow.
const (
	StepCheckout         = "checkout"
	StepBuildDeploy      = "kfctl-build-deploy"
	StepKubeflowReady    = "kubeflow-is-ready"
	StepEndpointReady    = "endpoint-ready"
	StepSecondApply      = "kfctl-second-apply"
	StepRunTests         = "kf-tests"
	StepCreatePRSymlink  = "create-pr-symlink"
	StepTFJobTest        = "tfjob-test"
	StepPyTorchJobDeploy = "pytorch-job-deploy"
	StepNotebookTest     = "notebook-test"
	StepKFAMTest         = "kfam-test"
	StepGCPAccessTest    = "gcp-access-test"
	StepDeleteWrongHost  = "kfctl-delete-wrong-host"
	StepDelete           = "kfctl-delete"
	StepCopyArtifacts    = "copy-artifacts"
	StepTestDirDelete    = "test-dir-delete"
)

// Builder assembles the e2e workflow. A Builder is not safe for concurrent
// use; each call to Build starts from an empty document.
type Builder struct {
	cfg    Config
	layout Layout

	doc  *dag.Document
	tmpl *argov1.Template

	// endpointStep is the name of the endpoint-ready step if one was added.
	endpointStep string
}

// NewBuilder returns a Builder for cfg with defaults applied.
func NewBuilder(cfg Config) *Builder {
	cfg = cfg.WithDefaults()
	return &Builder{cfg: cfg, layout: NewLayout(cfg.Name, cfg.AppName)}
}

// Config returns the effective configuration.
func (b *Builder) Config() Config { return b.cfg }

// Layout returns the directories the workflow uses.
func (b *Builder) Layout() Layout { return b.layout }

// Build constructs the workflow. Any error is a hard stop; the partially
// built document is discarded.
func (b *Builder) Build() (*dag.Document, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Info("WorkflowBuilder", "Building workflow %s for app %s (config %s)", b.cfg.Name, b.cfg.AppName, b.cfg.ConfigPath)

	b.doc = dag.NewWorkflow(b.cfg.Name, b.cfg.Namespace)
	b.doc.SetLabel("workflow_template", TemplateLabel)
	for k, v := range b.cfg.CI.Labels() {
		b.doc.SetLabel(k, v)
	}
	b.tmpl = BuildTaskTemplate(b.cfg)
	b.endpointStep = ""

	steps := []func() error{
		b.addCheckout,
		b.addBuildDeploy,
		b.addKubeflowReady,
		b.addEndpointReady,
		b.addSecondApply,
		b.addTests,
		b.addPRSymlink,
		b.addExitHandler,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	b.doc.ApplyTemplateLabels()
	return b.doc, nil
}

// pytestStep returns a step running a pytest module from the kfctl checkout.
func (b *Builder) pytestStep(name, module string, args ...string) *argov1.Template {
	command := append([]string{"pytest", module, "-s", "--log-cli-level=info"}, args...)
	step := newStep(b.tmpl, name, command...)
	step.Container.WorkingDir = b.layout.PytestDir
	return step
}

// checkStep returns a step running one of the checks of this tool.
func (b *Builder) checkStep(name, check string, args ...string) *argov1.Template {
	command := append([]string{b.cfg.CheckBinary, "check", check}, args...)
	step := newStep(b.tmpl, name, command...)
	step.Container.WorkingDir = b.layout.TestDir
	return step
}

func (b *Builder) junit(name string) string {
	return "--junitxml=" + path.Join(b.layout.ArtifactsDir, "junit_"+name+".xml")
}

func (b *Builder) addCheckout() error {
	repos := append([]string{}, DefaultRepos...)
	if main := b.cfg.CI.MainRepo(); main != "" {
		repos = append(repos, main)
	}
	repos = append(repos, b.cfg.ExtraRepos...)
	combined, err := CombineRepos(repos...)
	if err != nil {
		return err
	}

	depth := CheckoutDepth(b.cfg.CI)
	if depth == "all" {
		logging.Info("WorkflowBuilder", "BRANCH_NAME=%s; checking out full history", b.cfg.CI.BranchName)
	}
	step := newStep(b.tmpl, StepCheckout,
		"/usr/local/bin/checkout_repos.sh",
		"--repos="+combined,
		"--depth="+depth,
		"--src_dir="+b.layout.SrcRootDir,
	)
	_, err = b.doc.InsertTask(dag.EntryDAG, step)
	return err
}

func (b *Builder) addBuildDeploy() error {
	configName := b.cfg.configName()
	step := b.pytestStep(StepBuildDeploy, "kfctl_go_test.py",
		"--app_path="+b.layout.AppDir,
		"--app_name="+b.cfg.AppName,
		"--config_path="+b.cfg.ConfigPath,
		"--values="+ValuesString(map[string]string{"srcrootdir": b.layout.SrcRootDir}),
		"--build_and_apply="+config.FormatBool(b.cfg.BuildAndApply),
		"--kfctl_repo_path="+b.layout.SrcDir,
		"--project="+b.cfg.Project,
		"--use_basic_auth="+config.FormatBool(b.cfg.UseBasicAuth),
		b.junit("kfctl-build-test"+configName),
		"-o", "junit_suite_name=test_kfctl_go_deploy_"+configName,
	)
	_, err := b.doc.InsertTask(dag.EntryDAG, step, StepCheckout)
	return err
}

func (b *Builder) addKubeflowReady() error {
	step := b.checkStep(StepKubeflowReady, "ready",
		"--app_path="+b.layout.AppDir,
		"--namespace="+StepsNamespace,
		"--use_basic_auth="+config.FormatBool(b.cfg.UseBasicAuth),
	)
	_, err := b.doc.InsertTask(dag.EntryDAG, step, StepBuildDeploy)
	return err
}

func (b *Builder) addEndpointReady() error {
	if !b.cfg.TestEndpoint {
		return nil
	}
	step := b.checkStep(StepEndpointReady, "endpoint",
		"--app_name="+b.cfg.AppName,
		"--project="+b.cfg.Project,
		"--use_basic_auth="+config.FormatBool(b.cfg.UseBasicAuth),
	)
	if _, err := b.doc.InsertTask(dag.EntryDAG, step, StepBuildDeploy); err != nil {
		return err
	}
	b.endpointStep = StepEndpointReady
	return nil
}

func (b *Builder) addSecondApply() error {
	deps := []string{StepKubeflowReady}
	if b.endpointStep != "" {
		deps = append(deps, b.endpointStep)
	}
	step := b.checkStep(StepSecondApply, "second-apply",
		"--app_path="+b.layout.AppDir,
		"--kfctl_path="+b.layout.KfctlPath,
	)
	_, err := b.doc.InsertTask(dag.EntryDAG, step, deps...)
	return err
}

// addTests fills the tests DAG and invokes it from the entry DAG. The tests
// have no dependencies on each other so the engine runs them concurrently.
func (b *Builder) addTests() error {
	tfjob := newStep(b.tmpl, StepTFJobTest,
		"python", "-m", "kubeflow.tf_operator.simple_tfjob_tests",
		"--app_dir="+path.Join(b.layout.TFOperatorRoot, "test/workflows"),
		"--tfjob_version=v1",
		"--num_trials=1",
		"--artifacts_path="+b.layout.ArtifactsDir,
	)
	tfjob.Container.WorkingDir = b.layout.TFOperatorRoot

	tests := []*argov1.Template{
		tfjob,
		b.pytestStep(StepPyTorchJobDeploy, "pytorch_job_deploy.py",
			"--timeout=600",
			"--kfctl_repo_path="+b.layout.SrcDir,
			"--namespace="+StepsNamespace,
			b.junit("pytorch-test"),
		),
		b.pytestStep(StepNotebookTest, "jupyter_test.py",
			"--timeout=500",
			"--namespace="+StepsNamespace,
			b.junit("jupyter-test"),
		),
		b.checkStep(StepKFAMTest, "kfam",
			"--namespace="+StepsNamespace,
		),
		b.checkStep(StepGCPAccessTest, "gcp-access",
			"--app_name="+b.cfg.AppName,
			"--project="+b.cfg.Project,
		),
	}
	for _, t := range tests {
		if _, err := b.doc.InsertTask(dag.TestsDAG, t); err != nil {
			return err
		}
	}
	return b.doc.InsertSubDAGInvocation(dag.EntryDAG, StepRunTests, dag.TestsDAG, StepKubeflowReady)
}

func (b *Builder) addPRSymlink() error {
	step := newStep(b.tmpl, StepCreatePRSymlink,
		"python", "-m", "kubeflow.testing.prow_artifacts",
		"--artifacts_dir="+b.layout.OutputDir,
		"create_pr_symlink",
		"--bucket="+b.cfg.Bucket,
	)
	_, err := b.doc.InsertTask(dag.EntryDAG, step, StepCheckout)
	return err
}

// addExitHandler adds the steps that run after the entry DAG whatever its
// outcome: teardown, artifact upload and removal of the test directory.
func (b *Builder) addExitHandler() error {
	var copyDeps []string
	if !b.cfg.SkipTeardown {
		wrongHost := b.checkStep(StepDeleteWrongHost, "delete-wrong-cluster",
			"--app_path="+b.layout.AppDir,
			"--kfctl_path="+b.layout.KfctlPath,
		)
		if _, err := b.doc.InsertTask(dag.ExitDAG, wrongHost); err != nil {
			return err
		}
		del := b.pytestStep(StepDelete, "kfctl_delete_test.py",
			"--timeout=1000",
			"--app_path="+b.layout.AppDir,
			"--kfctl_path="+b.layout.KfctlPath,
			b.junit("kfctl-go-delete-test"),
		)
		if _, err := b.doc.InsertTask(dag.ExitDAG, del, StepDeleteWrongHost); err != nil {
			return err
		}
		copyDeps = append(copyDeps, StepDelete)
	} else {
		logging.Info("WorkflowBuilder", "Teardown disabled; deployment %s will be left running", b.cfg.AppName)
	}

	copyArtifacts := newStep(b.tmpl, StepCopyArtifacts,
		"python", "-m", "kubeflow.testing.prow_artifacts",
		"--artifacts_dir="+b.layout.OutputDir,
		"copy_artifacts",
		"--bucket="+b.cfg.Bucket,
	)
	if _, err := b.doc.InsertTask(dag.ExitDAG, copyArtifacts, copyDeps...); err != nil {
		return err
	}

	remove := newStep(b.tmpl, StepTestDirDelete,
		"python", "-m", "testing.run_with_retry", "--retries=5", "--",
		"rm", "-rf", b.layout.TestDir,
	)
	if _, err := b.doc.InsertTask(dag.ExitDAG, remove, StepCopyArtifacts); err != nil {
		return err
	}
	// Must not run from inside the directory being removed.
	if err := b.doc.SetWorkingDir(StepTestDirDelete, "/"); err != nil {
		return fmt.Errorf("failed to set working directory of %s: %w", StepTestDirDelete, err)
	}
	return nil
}
