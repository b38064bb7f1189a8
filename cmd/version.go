package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the kfctl-e2e version",
		Long: `Prints the version of kfctl-e2e. Workflow steps log it so a failing run
can be matched to the test-worker image that ran it.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kfctl-e2e version %s\n", rootCmd.Version)
			if verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "go %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also print the Go runtime and platform")
	return cmd
}
