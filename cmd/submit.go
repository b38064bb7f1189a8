package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kfctl-e2e/internal/client"
	"kfctl-e2e/internal/formatting"
	"kfctl-e2e/pkg/logging"
)

func newSubmitCmd() *cobra.Command {
	var (
		flags          workflowFlags
		kubeconfig     string
		filesystemPath string
		local          bool
		waitFor        bool
		waitTimeout    time.Duration
		pollInterval   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Build the end-to-end workflow and submit it",
		Long: `Builds the end-to-end test workflow and creates it in the cluster of the
current kubeconfig context, where the workflow controller runs it.

Without a reachable cluster, or with --local, the workflow is written to
<filesystem-path>/<namespace>/<name>.yaml instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := buildFromFlags(cmd, &flags)
			if err != nil {
				return err
			}
			c, err := client.NewWorkflowClient(client.Config{
				Kubeconfig:          kubeconfig,
				FilesystemPath:      filesystemPath,
				ForceFilesystemMode: local,
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := c.CreateWorkflow(ctx, wf); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "workflow %s/%s submitted\n", wf.Namespace, wf.Name)
			if !waitFor {
				return nil
			}
			status, err := client.WaitForCompletion(ctx, c, wf.Namespace, wf.Name, pollInterval, waitTimeout)
			if status != nil {
				logging.Debug("Submitter", "Final status: %s", formatting.PrettyJSON(status))
				fmt.Fprintf(cmd.OutOrStdout(), "workflow %s/%s finished: %s\n", wf.Namespace, wf.Name, status.Phase)
			}
			return err
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "Path of the kubeconfig (default: standard lookup)")
	cmd.Flags().StringVar(&filesystemPath, "filesystem-path", ".", "Directory workflows are written to without a cluster")
	cmd.Flags().BoolVar(&local, "local", false, "Write the workflow to the filesystem even if a cluster is reachable")
	cmd.Flags().BoolVar(&waitFor, "wait", false, "Wait for the workflow to finish")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 3*time.Hour, "How long --wait waits")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 30*time.Second, "How often --wait polls the workflow")
	return cmd
}

func init() {
	rootCmd.AddCommand(newSubmitCmd())
}
