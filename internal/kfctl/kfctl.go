package kfctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/internal/kfdef"
	"kfctl-e2e/pkg/logging"
)

const (
	// WrongClusterName replaces the real cluster in the wrong-cluster delete.
	WrongClusterName = "dummy"

	// WrongClusterMessage is the rejection kfctl prints for a mismatched
	// cluster.
	WrongClusterMessage = "cluster name doesn't match"

	DefaultDeleteWindow = 3 * time.Minute
)

// Kfctl runs a kfctl binary.
type Kfctl struct {
	Path   string
	Runner Runner

	// RetryInterval is the first pause between wrong-cluster delete attempts.
	RetryInterval time.Duration
}

// New creates a Kfctl for the binary at path.
func New(path string, runner Runner) *Kfctl {
	if runner == nil {
		runner = NewExecRunner()
	}
	return &Kfctl{Path: path, Runner: runner, RetryInterval: time.Second}
}

func kfdefPath(appPath string) string {
	return filepath.Join(appPath, kfdef.FileName)
}

// Apply runs kfctl apply on the app's descriptor.
func (k *Kfctl) Apply(ctx context.Context, appPath string) error {
	_, err := k.Runner.Run(ctx, appPath, k.Path, "apply", "-V", "-f="+kfdefPath(appPath))
	return err
}

// Delete removes the deployment and its storage.
func (k *Kfctl) Delete(ctx context.Context, appPath string) error {
	_, err := k.Runner.Run(ctx, appPath, k.Path, "delete", "--delete_storage", "-V", "-f", kfdefPath(appPath))
	return err
}

// SecondApply applies an already applied app again, which must succeed. It
// is skipped for presubmits and reports whether it ran.
func (k *Kfctl) SecondApply(ctx context.Context, appPath string, presubmit bool) (bool, error) {
	if presubmit {
		logging.Info(kfctlSubsystem, "Second apply doesn't run in presubmits")
		return false, nil
	}
	if _, err := os.Stat(k.Path); err != nil {
		return false, fmt.Errorf("kfctl binary not found: %s: %w", k.Path, err)
	}
	if err := k.Apply(ctx, appPath); err != nil {
		return true, fmt.Errorf("second apply failed: %w", err)
	}
	return true, nil
}

// DeleteWrongCluster points the descriptor at a wrong cluster and expects
// kfctl delete to refuse it. Attempts are retried within window while kfctl
// fails for other reasons. The descriptor's cluster is restored after every
// attempt. A delete that succeeds is an UnexpectedClusterStateError.
func (k *Kfctl) DeleteWrongCluster(ctx context.Context, appPath string, window time.Duration) error {
	if k.Path == "" {
		return api.NewValidationError("kfctl_path", "", "kfctl_path is required")
	}
	if appPath == "" {
		return api.NewValidationError("app_path", "", "app_path is required")
	}
	logging.Info(kfctlSubsystem, "Using kfctl path %s", k.Path)
	logging.Info(kfctlSubsystem, "Using app path %s", appPath)

	def, err := kfdef.LoadFile(appPath)
	if err != nil {
		return err
	}
	cluster := def.ClusterName()
	if cluster == "" {
		return api.NewValidationError("clusterName", "", "cluster is not written to kfdef")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = k.RetryInterval
	b.MaxElapsedTime = window

	return backoff.RetryNotify(
		func() (err error) {
			def.SetClusterName(WrongClusterName)
			if err := def.Save(); err != nil {
				return backoff.Permanent(err)
			}
			defer func() {
				def.SetClusterName(cluster)
				if restoreErr := def.Save(); restoreErr != nil {
					err = backoff.Permanent(errors.Join(err, fmt.Errorf("failed to restore cluster %s: %w", cluster, restoreErr)))
				}
			}()

			output, runErr := k.Runner.Run(ctx, appPath, k.Path, "delete", "--delete_storage", "-V", "-f", def.Path())
			if runErr == nil {
				return backoff.Permanent(&api.UnexpectedClusterStateError{
					Operation: "kfctl delete against cluster " + WrongClusterName,
					Expected:  WrongClusterMessage,
					Observed:  "delete succeeded",
				})
			}
			if strings.Contains(output, WrongClusterMessage) {
				logging.Info(kfctlSubsystem, "kfctl delete rejected the wrong cluster")
				return nil
			}
			return runErr
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			logging.Warn(kfctlSubsystem, "Unexpected kfctl delete failure: %v; retrying in %s", err, d)
		})
}
