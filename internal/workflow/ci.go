package workflow

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"

	stringsutil "kfctl-e2e/pkg/strings"
)

// Environment variables set by the CI system that are propagated into every
// step, in the order they are added to the container environment.
var ciEnvVars = []string{
	"JOB_NAME",
	"JOB_TYPE",
	"BUILD_ID",
	"BUILD_NUMBER",
	"PROW_JOB_ID",
	"PULL_NUMBER",
	"REPO_OWNER",
	"REPO_NAME",
	"PULL_BASE_SHA",
	"PULL_PULL_SHA",
}

// CIContext is the identity of the CI run the workflow is built for.
type CIContext struct {
	JobName     string
	JobType     string
	BuildID     string
	BuildNumber string
	ProwJobID   string
	PullNumber  string
	RepoOwner   string
	RepoName    string
	PullBaseSHA string
	PullPullSHA string

	// BranchName is set for periodic runs against a specific branch.
	BranchName string

	// CredentialsPath is the path of the GCP credentials file inside the
	// step containers.
	CredentialsPath string
}

// CIContextFromEnv reads the CI identity using lookup, normally os.LookupEnv.
func CIContextFromEnv(lookup func(string) (string, bool)) CIContext {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return CIContext{
		JobName:         get("JOB_NAME"),
		JobType:         get("JOB_TYPE"),
		BuildID:         get("BUILD_ID"),
		BuildNumber:     get("BUILD_NUMBER"),
		ProwJobID:       get("PROW_JOB_ID"),
		PullNumber:      get("PULL_NUMBER"),
		RepoOwner:       get("REPO_OWNER"),
		RepoName:        get("REPO_NAME"),
		PullBaseSHA:     get("PULL_BASE_SHA"),
		PullPullSHA:     get("PULL_PULL_SHA"),
		BranchName:      get("BRANCH_NAME"),
		CredentialsPath: get("GOOGLE_APPLICATION_CREDENTIALS"),
	}
}

// IsPresubmit reports whether the run tests a pull request.
func (c CIContext) IsPresubmit() bool {
	return c.JobType == "presubmit"
}

// MainRepo returns the repository under test in owner/repo@ref form, or ""
// if the run is not associated with a repository.
func (c CIContext) MainRepo() string {
	if c.RepoOwner == "" || c.RepoName == "" {
		return ""
	}
	repo := c.RepoOwner + "/" + c.RepoName
	switch {
	case c.PullNumber != "":
		sha := c.PullPullSHA
		if sha == "" {
			sha = "HEAD"
		}
		return fmt.Sprintf("%s@%s:refs/pull/%s/head", repo, sha, c.PullNumber)
	case c.PullBaseSHA != "":
		return repo + "@" + c.PullBaseSHA
	default:
		return repo + "@HEAD"
	}
}

func (c CIContext) values() map[string]string {
	return map[string]string{
		"JOB_NAME":      c.JobName,
		"JOB_TYPE":      c.JobType,
		"BUILD_ID":      c.BuildID,
		"BUILD_NUMBER":  c.BuildNumber,
		"PROW_JOB_ID":   c.ProwJobID,
		"PULL_NUMBER":   c.PullNumber,
		"REPO_OWNER":    c.RepoOwner,
		"REPO_NAME":     c.RepoName,
		"PULL_BASE_SHA": c.PullBaseSHA,
		"PULL_PULL_SHA": c.PullPullSHA,
	}
}

// Env returns the CI variables that are set as container environment.
func (c CIContext) Env() []corev1.EnvVar {
	values := c.values()
	var env []corev1.EnvVar
	for _, key := range ciEnvVars {
		if v := values[key]; v != "" {
			env = append(env, corev1.EnvVar{Name: key, Value: v})
		}
	}
	return env
}

// Labels returns the CI variables that are set as workflow labels. Keys are
// lower cased and values sanitized into valid label values; values that
// sanitize to nothing are dropped.
func (c CIContext) Labels() map[string]string {
	values := c.values()
	labels := make(map[string]string)
	for _, key := range ciEnvVars {
		v := values[key]
		if v == "" {
			continue
		}
		if v = stringsutil.LabelValue(v); v != "" {
			labels[strings.ToLower(key)] = v
		}
	}
	return labels
}

// CheckoutDepth returns the git history depth for the checkout step. A branch
// run needs the full history to compute the merge base against the branch.
func CheckoutDepth(ci CIContext) string {
	if ci.BranchName != "" {
		return "all"
	}
	return "30"
}
