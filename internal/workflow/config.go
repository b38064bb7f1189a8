package workflow

import (
	"path"
	"strings"

	"github.com/google/uuid"

	"kfctl-e2e/internal/api"
)

const (
	// MaxAppNameLength bounds the deployment name. GCP service accounts are
	// derived from it by appending suffixes such as "-admin" and "-user" and
	// are limited to 30 characters.
	MaxAppNameLength = 20

	// TemplateLabel is the workflow_template label of the base workflow.
	TemplateLabel = "kfctl_e2e"

	DefaultNamespace  = "kubeflow-test-infra"
	DefaultConfigPath = "https://raw.githubusercontent.com/kubeflow/manifests/master/kfdef/kfctl_gcp_iap.yaml"
	DefaultProject    = "kubeflow-ci-deployment"
	DefaultZone       = "us-east1-b"
	DefaultBucket     = "kubernetes-jenkins"
	DefaultImage      = "gcr.io/kubeflow-ci/test-worker-py3:latest"

	// DefaultCheckBinary is the name of this tool inside the test image.
	DefaultCheckBinary = "kfctl-e2e"

	// StepsNamespace is the namespace test resources (TFJobs, notebooks) are
	// created in.
	StepsNamespace = "kubeflow"

	defaultCredentialsPath = "/secret/gcp-credentials/key.json"
)

// Config parameterizes a Builder.
type Config struct {
	// Name of the workflow; also names the test directory on the shared volume.
	Name      string
	Namespace string

	// AppName is the name of the Kubeflow deployment under test.
	AppName string

	// ConfigPath is the KfDef spec deployed by the build step.
	ConfigPath string

	// TestTargetName groups junit results; defaults to the config file name.
	TestTargetName string

	// TestEndpoint adds the endpoint-ready step.
	TestEndpoint  bool
	UseBasicAuth  bool
	BuildAndApply bool

	// SkipTeardown leaves the deployment running after the workflow.
	SkipTeardown bool

	// ExtraRepos override the default checkout in owner/repo@ref form.
	ExtraRepos []string

	Project string
	Zone    string
	Bucket  string
	Image   string

	// CheckBinary runs the readiness and cluster checks inside the steps.
	CheckBinary string

	CI CIContext
}

// DefaultAppName returns a fresh deployment name. It has to be unique per
// run because GCP resources are named after it.
func DefaultAppName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "kfctl-" + id[:4]
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.ConfigPath == "" {
		c.ConfigPath = DefaultConfigPath
	}
	if c.AppName == "" {
		c.AppName = DefaultAppName()
	}
	if c.TestTargetName == "" {
		c.TestTargetName = c.configName()
	}
	if c.Project == "" {
		c.Project = DefaultProject
	}
	if c.Zone == "" {
		c.Zone = DefaultZone
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.Image == "" {
		c.Image = DefaultImage
	}
	if c.CheckBinary == "" {
		c.CheckBinary = DefaultCheckBinary
	}
	if c.CI.CredentialsPath == "" {
		c.CI.CredentialsPath = defaultCredentialsPath
	}
	return c
}

// Validate rejects configurations no workflow can be built from.
func (c Config) Validate() error {
	if c.Name == "" {
		return api.NewValidationError("name", "", "the workflow needs a name")
	}
	if len(c.AppName) > MaxAppNameLength {
		return api.NewValidationError("appName", c.AppName,
			"must be at most 20 characters; longer names exceed GCP service account name limits")
	}
	return nil
}

// configName is the base name of the config file without extension, used to
// give junit files unique names.
func (c Config) configName() string {
	base := path.Base(c.ConfigPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Layout holds the directories a run uses on the shared test volume.
type Layout struct {
	MountPath string
	// TestDir is the root of all data of one run.
	TestDir   string
	OutputDir string
	// ArtifactsDir carries the junit_ prefix the CI dashboards expect.
	ArtifactsDir string
	SrcRootDir   string
	// SrcDir is the kubeflow/kfctl checkout.
	SrcDir            string
	PytestDir         string
	KfctlPy           string
	KubeflowTestingPy string
	TFOperatorRoot    string
	TFOperatorPy      string
	AppDir            string
	KfctlPath         string
	Kubeconfig        string
}

// NewLayout derives the directory layout for a workflow and deployment.
func NewLayout(name, appName string) Layout {
	mount := "/mnt/test-data-volume"
	testDir := path.Join(mount, name)
	outputDir := path.Join(testDir, "output")
	srcRoot := path.Join(testDir, "src")
	srcDir := path.Join(srcRoot, "kubeflow/kfctl")
	tfOperator := path.Join(srcRoot, "kubeflow/tf-operator")
	return Layout{
		MountPath:         mount,
		TestDir:           testDir,
		OutputDir:         outputDir,
		ArtifactsDir:      path.Join(outputDir, "artifacts", "junit_"+name),
		SrcRootDir:        srcRoot,
		SrcDir:            srcDir,
		PytestDir:         path.Join(srcDir, "py/kubeflow/kfctl/testing/pytests"),
		KfctlPy:           path.Join(srcDir, "py"),
		KubeflowTestingPy: path.Join(srcRoot, "kubeflow/testing/py"),
		TFOperatorRoot:    tfOperator,
		TFOperatorPy:      path.Join(tfOperator, "py"),
		AppDir:            path.Join(testDir, appName),
		KfctlPath:         path.Join(srcDir, "bin/kfctl"),
		Kubeconfig:        path.Join(testDir, ".kube/config"),
	}
}
