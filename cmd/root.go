package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/internal/config"
	"kfctl-e2e/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeValidation indicates a malformed configuration.
	ExitCodeValidation = 2
	// ExitCodeReference indicates a workflow step referring to a missing step or DAG.
	ExitCodeReference = 3
	// ExitCodeTimeout indicates a workload or endpoint that did not become ready.
	ExitCodeTimeout = 4
	// ExitCodeUnexpectedClusterState indicates a cluster that did not behave as expected.
	ExitCodeUnexpectedClusterState = 5
)

var (
	rootDebug      bool
	rootLogLevel   string
	rootConfigPath string

	// fileConfig is loaded before every command runs.
	fileConfig = config.GetDefaultConfig()
)

// rootCmd represents the base command for the kfctl-e2e application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "kfctl-e2e",
	Short: "Build and run the kfctl end-to-end test workflow",
	Long: `kfctl-e2e builds the Argo workflow that deploys Kubeflow with kfctl, tests the
deployment and tears it down again, and submits it to a cluster.

The steps of that workflow call back into kfctl-e2e through its check
subcommands to verify the deployment: workload readiness, the public
endpoint, the profile API, IAM bindings and kfctl's own safety checks.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(rootLogLevel)
		if err != nil {
			return api.NewValidationError("log-level", rootLogLevel, err.Error())
		}
		if rootDebug {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())

		cfg, err := config.LoadConfig(rootConfigPath)
		if err != nil {
			return err
		}
		fileConfig = cfg
		return nil
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "kfctl-e2e version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	switch {
	case err == nil:
		return ExitCodeSuccess
	case api.IsValidation(err), config.IsConfigurationError(err):
		return ExitCodeValidation
	case api.IsReference(err):
		return ExitCodeReference
	case api.IsTimeout(err):
		return ExitCodeTimeout
	case api.IsUnexpectedClusterState(err):
		return ExitCodeUnexpectedClusterState
	default:
		return ExitCodeError
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path of a kfctl-e2e configuration file")

	rootCmd.AddCommand(newVersionCmd())
}
