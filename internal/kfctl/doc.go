// Package kfctl runs the kfctl installer against an app directory.
//
// Commands go through a Runner so that checks built on them, such as the
// wrong-cluster delete, can be exercised without a kfctl binary. ExecRunner
// is the implementation used by the CLI.
package kfctl
