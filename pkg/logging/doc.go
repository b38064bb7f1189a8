// Package logging provides the subsystem tagged logger used throughout
// kfctl-e2e.
//
// It is a thin layer over log/slog. Every entry carries a subsystem
// attribute naming the component that produced it, for example
// "WorkflowBuilder", "Readiness", "Endpoint", "KFAM", "IAM" or "Kfctl".
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Readiness", "Waiting for deployment %s/%s", ns, name)
//	logging.Debug("WorkflowBuilder", "Inserted task %s", name)
//	logging.Error("Kfctl", err, "Delete against wrong cluster failed")
//
// InitForCLI also installs the same handler as the logr sink of
// controller-runtime and klog, so client-go and the controller-runtime client
// log through it instead of warning about an uninitialized logger.
//
// Messages logged before InitForCLI is called are dropped, except warnings
// and errors which are written to stderr.
package logging
