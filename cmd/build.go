package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"kfctl-e2e/internal/config"
	"kfctl-e2e/internal/dag"
	"kfctl-e2e/internal/formatting"
	"kfctl-e2e/internal/workflow"
	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
)

// workflowFlags are the builder options shared by build, describe and submit.
// Flags that are set override the configuration file.
type workflowFlags struct {
	name            string
	namespace       string
	appName         string
	configPath      string
	testTargetName  string
	testEndpoint    bool
	useBasicAuth    bool
	buildAndApply   bool
	deleteKF        bool
	extraRepos      string
	project         string
	zone            string
	bucket          string
	image           string
	checkBinary     string
	upgrade         bool
	upgradeSpecPath string
}

func (f *workflowFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "Name of the workflow")
	fs.StringVar(&f.namespace, "namespace", workflow.DefaultNamespace, "Namespace the workflow runs in")
	fs.StringVar(&f.appName, "app-name", "", "Name of the Kubeflow deployment (default: generated)")
	fs.StringVar(&f.configPath, "config-path", workflow.DefaultConfigPath, "KfDef spec to deploy")
	fs.StringVar(&f.testTargetName, "test-target-name", "", "Name grouping the junit results (default: config file name)")
	fs.BoolVar(&f.testEndpoint, "test-endpoint", false, "Wait for the public endpoint")
	fs.BoolVar(&f.useBasicAuth, "use-basic-auth", false, "Deploy with basic auth instead of IAP")
	fs.BoolVar(&f.buildAndApply, "build-and-apply", false, "Run kfctl build before kfctl apply")
	fs.BoolVar(&f.deleteKF, "delete-kf", true, "Delete the deployment when the workflow exits")
	fs.StringVar(&f.extraRepos, "extra-repos", "", "Comma separated repositories to check out, in owner/repo@ref form")
	fs.StringVar(&f.project, "project", workflow.DefaultProject, "GCP project to deploy to")
	fs.StringVar(&f.zone, "zone", workflow.DefaultZone, "GCP zone to deploy to")
	fs.StringVar(&f.bucket, "bucket", workflow.DefaultBucket, "Bucket artifacts are copied to")
	fs.StringVar(&f.image, "image", workflow.DefaultImage, "Image the steps run in")
	fs.StringVar(&f.checkBinary, "check-binary", workflow.DefaultCheckBinary, "Name of this tool inside the image")
	fs.BoolVar(&f.upgrade, "upgrade", false, "Build the upgrade workflow")
	fs.StringVar(&f.upgradeSpecPath, "upgrade-spec-path", workflow.DefaultUpgradeSpecPath, "KfUpgrade spec used by the upgrade workflow")
}

// merge applies the flags the user set on top of file.
func (f *workflowFlags) merge(fs *pflag.FlagSet, file config.WorkflowConfig) config.WorkflowConfig {
	set := func(name string) bool { return fs.Changed(name) }
	str := func(name, flag, fileValue string) string {
		if set(name) || fileValue == "" {
			return flag
		}
		return fileValue
	}

	cfg := file
	cfg.Name = str("name", f.name, file.Name)
	cfg.Namespace = str("namespace", f.namespace, file.Namespace)
	cfg.AppName = str("app-name", f.appName, file.AppName)
	cfg.ConfigPath = str("config-path", f.configPath, file.ConfigPath)
	cfg.TestTargetName = str("test-target-name", f.testTargetName, file.TestTargetName)
	cfg.Project = str("project", f.project, file.Project)
	cfg.Zone = str("zone", f.zone, file.Zone)
	cfg.Bucket = str("bucket", f.bucket, file.Bucket)
	cfg.Image = str("image", f.image, file.Image)
	cfg.CheckBinary = str("check-binary", f.checkBinary, file.CheckBinary)
	cfg.UpgradeSpecPath = str("upgrade-spec-path", f.upgradeSpecPath, file.UpgradeSpecPath)
	if set("test-endpoint") {
		cfg.TestEndpoint = f.testEndpoint
	}
	if set("use-basic-auth") {
		cfg.UseBasicAuth = f.useBasicAuth
	}
	if set("build-and-apply") {
		cfg.BuildAndApply = f.buildAndApply
	}
	if set("delete-kf") {
		deleteKF := f.deleteKF
		cfg.DeleteKF = &deleteKF
	}
	if set("upgrade") {
		cfg.Upgrade = f.upgrade
	}
	if set("extra-repos") {
		cfg.ExtraRepos = workflow.ParseRepos(f.extraRepos)
	}
	return cfg
}

// buildWorkflow builds and validates the workflow described by cfg.
func buildWorkflow(cfg config.WorkflowConfig, ci workflow.CIContext) (*argov1.Workflow, error) {
	wc := workflow.Config{
		Name:           cfg.Name,
		Namespace:      cfg.Namespace,
		AppName:        cfg.AppName,
		ConfigPath:     cfg.ConfigPath,
		TestTargetName: cfg.TestTargetName,
		TestEndpoint:   cfg.TestEndpoint,
		UseBasicAuth:   cfg.UseBasicAuth,
		BuildAndApply:  cfg.BuildAndApply,
		SkipTeardown:   !cfg.ShouldDelete(),
		ExtraRepos:     cfg.ExtraRepos,
		Project:        cfg.Project,
		Zone:           cfg.Zone,
		Bucket:         cfg.Bucket,
		Image:          cfg.Image,
		CheckBinary:    cfg.CheckBinary,
		CI:             ci,
	}

	var (
		doc *dag.Document
		err error
	)
	if cfg.Upgrade {
		doc, err = workflow.NewUpgradeBuilder(wc, cfg.UpgradeSpecPath).Build()
	} else {
		doc, err = workflow.NewBuilder(wc).Build()
	}
	if err != nil {
		return nil, err
	}
	wf := doc.Workflow()
	if err := dag.Validate(wf); err != nil {
		return nil, fmt.Errorf("built workflow is invalid: %w", err)
	}
	return wf, nil
}

func buildFromFlags(cmd *cobra.Command, f *workflowFlags) (*argov1.Workflow, error) {
	cfg := f.merge(cmd.Flags(), fileConfig.Workflow)
	return buildWorkflow(cfg, workflow.CIContextFromEnv(os.LookupEnv))
}

func newBuildCmd() *cobra.Command {
	var (
		flags  workflowFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Print the end-to-end workflow",
		Long: `Builds the end-to-end test workflow and prints it.

The CI identity (JOB_NAME, JOB_TYPE, BUILD_ID, PULL_NUMBER, REPO_OWNER,
REPO_NAME, PULL_BASE_SHA, PULL_PULL_SHA, BRANCH_NAME) is read from the
environment and passed to every step.

Examples:
  kfctl-e2e build --name kfctl-e2e-1234
  kfctl-e2e build --name kfctl-e2e-1234 --test-endpoint --upgrade -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatting.ParseFormat(output)
			if err != nil {
				return err
			}
			if format != formatting.FormatYAML && format != formatting.FormatJSON {
				return fmt.Errorf("build prints yaml or json, not %s", format)
			}
			wf, err := buildFromFlags(cmd, &flags)
			if err != nil {
				return err
			}
			return formatting.NewFormatter(formatting.Options{Format: format}).FormatWorkflow(cmd.OutOrStdout(), wf)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	var (
		flags  workflowFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "List the DAGs and tasks of the end-to-end workflow",
		Long: `Builds the end-to-end test workflow and lists its DAGs, their tasks and
the dependencies between them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatting.ParseFormat(output)
			if err != nil {
				return err
			}
			wf, err := buildFromFlags(cmd, &flags)
			if err != nil {
				return err
			}
			return formatting.NewFormatter(formatting.Options{
				Format: format,
				Color:  isTerminal(os.Stdout),
			}).FormatWorkflow(cmd.OutOrStdout(), wf)
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, console, yaml, json)")
	return cmd
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func init() {
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newDescribeCmd())
}
