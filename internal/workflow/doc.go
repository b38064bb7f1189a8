// Package workflow builds the kfctl end-to-end CI workflow.
//
// A Builder turns a Config into a dag.Document in a fixed sequence of steps:
//
//	e2e:          checkout -> kfctl-build-deploy -> kubeflow-is-ready -> kfctl-second-apply
//	                                             \-> endpoint-ready  -/
//	              kubeflow-is-ready -> kf-tests (runs the tests DAG)
//	              checkout -> create-pr-symlink
//	tests:        tfjob-test, pytorch-job-deploy, notebook-test, kfam-test, gcp-access-test
//	exit-handler: kfctl-delete-wrong-host -> kfctl-delete -> copy-artifacts -> test-dir-delete
//
// Every container step is a deep copy of the template returned by
// BuildTaskTemplate, so customizing one step never leaks into another.
//
// The CI identity of the run (prow job, pull request, branch) is captured once
// in a CIContext and passed in explicitly; nothing in this package reads the
// process environment.
//
// UpgradeBuilder extends the base workflow with a DAG that upgrades the
// deployment and reruns the readiness checks and tests afterwards.
package workflow
