package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/internal/client"
	"kfctl-e2e/internal/config"
	"kfctl-e2e/internal/endpoint"
	"kfctl-e2e/internal/formatting"
	"kfctl-e2e/internal/iam"
	"kfctl-e2e/internal/kfam"
	"kfctl-e2e/internal/kfctl"
	"kfctl-e2e/internal/kfdef"
	"kfctl-e2e/internal/readiness"
	"kfctl-e2e/internal/workflow"
	"kfctl-e2e/pkg/logging"
)

// checkOptions is the flag surface shared by the checks run inside workflow
// steps. Boolean flags are strings holding "True" or "False".
type checkOptions struct {
	appPath               string
	appName               string
	kfctlPath             string
	kfctlRepoPath         string
	namespace             string
	project               string
	configPath            string
	values                string
	buildAndApply         string
	useBasicAuth          string
	useIstio              string
	clusterCreationScript string
	clusterDeletionScript string
	platform              string
	selfSignedCert        string
	upgradeSpecPath       string

	kubeconfig string
	clientID   string
}

var checkOpts checkOptions

// checkCmd groups the checks run by the steps of the workflow.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify a Kubeflow deployment",
	Long: `Checks run by the steps of the end-to-end workflow against the deployment
under test.

Available checks:
  ready                 - Kubeflow, istio and platform workloads are ready
  endpoint              - the public endpoint serves requests (IAP or basic auth)
  kfam                  - the profile API creates and binds a profile
  gcp-access            - the GCP service accounts are bound as expected
  delete-wrong-cluster  - kfctl delete refuses a KfDef naming another cluster
  second-apply          - kfctl apply succeeds on an applied app

Boolean flags take strings; "t" and "true" in any case mean true.`,
}

func (o *checkOptions) register(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&o.appPath, "app_path", "", "Path where the KF application is stored")
	fs.StringVar(&o.appName, "app_name", "", "Name of the KF application")
	fs.StringVar(&o.kfctlPath, "kfctl_path", "", "Path to kfctl")
	fs.StringVar(&o.kfctlRepoPath, "kfctl_repo_path", "", "Path to the kfctl repo")
	fs.StringVar(&o.namespace, "namespace", config.DefaultNamespace, "Namespace Kubeflow is deployed to")
	fs.StringVar(&o.project, "project", config.DefaultProject, "GCP project Kubeflow is deployed to")
	fs.StringVar(&o.configPath, "config_path", "", "The config used for kfctl")
	fs.StringVar(&o.values, "values", "", "Comma separated key=value pairs substituted in --config_path")
	fs.StringVar(&o.buildAndApply, "build_and_apply", "False", "Whether to build and apply or apply in kfctl")
	fs.StringVar(&o.useBasicAuth, "use_basic_auth", "False", "Use basic auth")
	fs.StringVar(&o.useIstio, "use_istio", "True", "Use istio")
	fs.StringVar(&o.clusterCreationScript, "cluster_creation_script", "", "Script creating the cluster before kfctl runs")
	fs.StringVar(&o.clusterDeletionScript, "cluster_deletion_script", "", "Script deleting the cluster")
	fs.StringVar(&o.platform, "platform", readiness.PlatformGCP, "Platform used when no KfDef is available")
	fs.StringVar(&o.selfSignedCert, "self_signed_cert", "False", "Whether ingress uses a self-signed cert")
	fs.StringVar(&o.upgradeSpecPath, "upgrade_spec_path", "", "The spec for upgrading Kubeflow")
	fs.StringVar(&o.kubeconfig, "kubeconfig", "", "Path of the kubeconfig (default: standard lookup)")
	fs.StringVar(&o.clientID, "client_id", "", "OAuth client of the IAP (default: $CLIENT_ID or the CI project's client)")
}

// merge takes namespace and project from file unless the flag was set.
func (o *checkOptions) merge(fs *pflag.FlagSet, file config.CheckConfig) {
	if !fs.Changed("namespace") && file.Namespace != "" {
		o.namespace = file.Namespace
	}
	if !fs.Changed("project") && file.Project != "" {
		o.project = file.Project
	}
}

// kfDef loads the app's KfDef, or returns nil when no app path is set.
func (o *checkOptions) kfDef() (*kfdef.KfDef, error) {
	if o.appPath == "" {
		logging.Info("Check", "--app_path not set; won't use KfDef to set platform")
		return nil, nil
	}
	return kfdef.LoadFile(o.appPath)
}

// resolvePlatform prefers the platform declared by the KfDef over --platform.
func (o *checkOptions) resolvePlatform() (string, error) {
	def, err := o.kfDef()
	if err != nil {
		return "", err
	}
	if def == nil {
		return o.platform, nil
	}
	platform, err := def.Platform()
	if err != nil {
		return "", err
	}
	if platform == "" {
		return o.platform, nil
	}
	return platform, nil
}

func (o *checkOptions) resolveAppName() (string, error) {
	if o.appName != "" {
		return o.appName, nil
	}
	def, err := o.kfDef()
	if err != nil {
		return "", err
	}
	if def == nil || def.Name() == "" {
		return "", api.NewValidationError("app_name", "", "--app_name or a KfDef with a name is required")
	}
	return def.Name(), nil
}

func (o *checkOptions) restConfig() (*rest.Config, error) {
	return client.RESTConfig(o.kubeconfig)
}

func (o *checkOptions) clientset() (kubernetes.Interface, error) {
	cfg, err := o.restConfig()
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(cfg)
}

func ciContext() workflow.CIContext {
	return workflow.CIContextFromEnv(os.LookupEnv)
}

func credentialsFile() string {
	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
}

func skipped(w io.Writer, check, reason string) error {
	fmt.Fprintf(w, "SKIPPED %s: %s\n", check, reason)
	return nil
}

func passed(w io.Writer, check string) error {
	fmt.Fprintf(w, "PASSED %s\n", check)
	return nil
}

// withSpinner shows progress on a terminal while fn runs.
func withSpinner(suffix string, fn func() error) error {
	if rootDebug || !isTerminal(os.Stderr) {
		return fn()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	err := fn()
	s.Stop()
	return err
}

// selectChecks returns the readiness checks for platform, leaving istio out
// when it is not used.
func selectChecks(platform, namespace string, useIstio bool) []readiness.Check {
	var checks []readiness.Check
	for _, c := range readiness.ChecksForPlatform(platform, namespace) {
		if c.Name == "istio" && !useIstio {
			continue
		}
		checks = append(checks, c)
	}
	return checks
}

func newCheckReadyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Wait for the Kubeflow workloads to become ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := checkOpts.resolvePlatform()
			if err != nil {
				return err
			}
			cs, err := checkOpts.clientset()
			if err != nil {
				return err
			}
			checks := selectChecks(platform, checkOpts.namespace, config.ParseBool(checkOpts.useIstio))
			workloads := 0
			for _, c := range checks {
				workloads += c.Workloads()
			}
			logging.Info("Check", "Checking %d workloads of %d components for platform %q", workloads, len(checks), platform)

			prober := readiness.NewProber(cs, fileConfig.Check.PollInterval)
			var results []readiness.Result
			err = withSpinner("Waiting for Kubeflow workloads...", func() error {
				var err error
				results, err = readiness.CheckAll(cmd.Context(), prober, checks, fileConfig.Check.ReadyTimeout)
				return err
			})
			printReadiness(cmd.OutOrStdout(), results)
			if err != nil {
				return err
			}
			return passed(cmd.OutOrStdout(), "ready")
		},
	}
}

func newCheckEndpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoint",
		Short: "Wait for the public endpoint to serve requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ciContext().IsPresubmit() {
				return skipped(cmd.OutOrStdout(), "endpoint", "doesn't run in presubmits")
			}
			appName, err := checkOpts.resolveAppName()
			if err != nil {
				return err
			}
			url := endpoint.URL(appName, checkOpts.project)
			checker := endpoint.NewChecker(true)
			ctx := cmd.Context()
			timeout := fileConfig.Check.EndpointTimeout

			if config.ParseBool(checkOpts.useBasicAuth) {
				login, err := endpoint.LoadLogin(checkOpts.appPath)
				if err != nil {
					return err
				}
				err = withSpinner("Waiting for "+url+"...", func() error {
					return checker.BasicAuthReady(ctx, url, *login, timeout)
				})
				if err != nil {
					return fmt.Errorf("basic auth endpoint is not ready: %w", err)
				}
				return passed(cmd.OutOrStdout(), "endpoint")
			}

			clientID := checkOpts.clientID
			if clientID == "" {
				clientID = os.Getenv("CLIENT_ID")
			}
			if clientID == "" {
				clientID = endpoint.DefaultClientID
			}
			ts, err := endpoint.IDTokenSource(ctx, clientID, credentialsFile())
			if err != nil {
				return err
			}
			err = withSpinner("Waiting for "+url+"...", func() error {
				return checker.IAPReady(ctx, url, ts, timeout)
			})
			if err != nil {
				return fmt.Errorf("IAP endpoint is not ready: %w", err)
			}
			return passed(cmd.OutOrStdout(), "endpoint")
		},
	}
}

func newCheckKFAMCmd() *cobra.Command {
	var profile, owner string
	cmd := &cobra.Command{
		Use:   "kfam",
		Short: "Create a profile through the profile API and verify its binding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := checkOpts.restConfig()
			if err != nil {
				return err
			}
			c, err := kfam.NewServiceProxyClient(cfg, checkOpts.namespace, kfam.DefaultService, kfam.DefaultPort)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := c.CreateProfile(ctx, profile, owner); err != nil {
				return err
			}
			if err := c.VerifyProfile(ctx, profile); err != nil {
				return err
			}
			return passed(cmd.OutOrStdout(), "kfam")
		},
	}
	cmd.Flags().StringVar(&profile, "profile", kfam.DefaultProfile, "Name of the profile to create")
	cmd.Flags().StringVar(&owner, "owner", kfam.DefaultOwner, "Owner of the profile")
	return cmd
}

func newCheckGCPAccessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gcp-access",
		Short: "Verify workload identity and the GCP service account bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := checkOpts.resolvePlatform()
			if err != nil {
				return err
			}
			if platform != readiness.PlatformGCP {
				return skipped(cmd.OutOrStdout(), "gcp-access", "not running on GCP")
			}
			appName, err := checkOpts.resolveAppName()
			if err != nil {
				return err
			}
			cs, err := checkOpts.clientset()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := iam.CheckSecret(ctx, cs, checkOpts.namespace, iam.UserSecret); err != nil {
				return err
			}
			getter, err := iam.NewPolicyGetter(ctx, credentialsFile())
			if err != nil {
				return err
			}
			if err := iam.VerifyServiceAccountBindings(ctx, getter, checkOpts.project, appName); err != nil {
				return err
			}
			return passed(cmd.OutOrStdout(), "gcp-access")
		},
	}
}

func newCheckDeleteWrongClusterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-wrong-cluster",
		Short: "Verify that kfctl delete refuses a KfDef naming another cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := kfctl.New(checkOpts.kfctlPath, nil)
			if err := k.DeleteWrongCluster(cmd.Context(), checkOpts.appPath, fileConfig.Check.DeleteWindow); err != nil {
				return err
			}
			return passed(cmd.OutOrStdout(), "delete-wrong-cluster")
		},
	}
}

func newCheckSecondApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "second-apply",
		Short: "Verify that kfctl apply succeeds on an applied app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkOpts.appPath == "" {
				return api.NewValidationError("app_path", "", "app_path is required")
			}
			k := kfctl.New(checkOpts.kfctlPath, nil)
			ran, err := k.SecondApply(cmd.Context(), checkOpts.appPath, ciContext().IsPresubmit())
			if err != nil {
				return err
			}
			if !ran {
				return skipped(cmd.OutOrStdout(), "second-apply", "doesn't run in presubmits")
			}
			return passed(cmd.OutOrStdout(), "second-apply")
		},
	}
}

func init() {
	checkOpts.register(checkCmd)
	checkCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		checkOpts.merge(cmd.Flags(), fileConfig.Check)
		return nil
	}
	checkCmd.AddCommand(
		newCheckReadyCmd(),
		newCheckEndpointCmd(),
		newCheckKFAMCmd(),
		newCheckGCPAccessCmd(),
		newCheckDeleteWrongClusterCmd(),
		newCheckSecondApplyCmd(),
	)
	rootCmd.AddCommand(checkCmd)
}

func printReadiness(w io.Writer, results []readiness.Result) {
	if len(results) == 0 {
		return
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "READY"
		if !r.Ready() {
			status = "FAILED"
		}
		rows = append(rows, []string{r.Kind, r.Name, r.Namespace, status})
	}
	formatting.NewTableFormatter(formatting.Options{Color: isTerminal(os.Stdout)}).
		FormatRows(w, []string{"KIND", "NAME", "NAMESPACE", "STATUS"}, rows)
}
