package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestCIContextFromEnv(t *testing.T) {
	ci := CIContextFromEnv(lookupFrom(map[string]string{
		"JOB_NAME":                       "kfctl-postsubmit",
		"JOB_TYPE":                       "postsubmit",
		"BUILD_ID":                       "99",
		"REPO_OWNER":                     "kubeflow",
		"REPO_NAME":                      "kfctl",
		"PULL_BASE_SHA":                  "abc123",
		"BRANCH_NAME":                    "v1.1-branch",
		"GOOGLE_APPLICATION_CREDENTIALS": "/creds.json",
	}))

	assert.Equal(t, "kfctl-postsubmit", ci.JobName)
	assert.Equal(t, "99", ci.BuildID)
	assert.Equal(t, "v1.1-branch", ci.BranchName)
	assert.Equal(t, "/creds.json", ci.CredentialsPath)
	assert.False(t, ci.IsPresubmit())
	assert.Equal(t, "kubeflow/kfctl@abc123", ci.MainRepo())
}

func TestCIContextMainRepo(t *testing.T) {
	tests := []struct {
		name string
		ci   CIContext
		want string
	}{
		{name: "no repo", ci: CIContext{}, want: ""},
		{name: "owner only", ci: CIContext{RepoOwner: "kubeflow"}, want: ""},
		{name: "periodic", ci: CIContext{RepoOwner: "kubeflow", RepoName: "kfctl"}, want: "kubeflow/kfctl@HEAD"},
		{
			name: "postsubmit",
			ci:   CIContext{RepoOwner: "kubeflow", RepoName: "kfctl", PullBaseSHA: "base"},
			want: "kubeflow/kfctl@base",
		},
		{
			name: "presubmit",
			ci:   CIContext{RepoOwner: "kubeflow", RepoName: "kfctl", PullNumber: "12", PullPullSHA: "head"},
			want: "kubeflow/kfctl@head:refs/pull/12/head",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ci.MainRepo())
		})
	}
}

func TestCIContextLabels(t *testing.T) {
	ci := CIContext{JobName: strings.Repeat("j", 80), BuildID: "7"}
	labels := ci.Labels()

	assert.Len(t, labels, 2)
	assert.Equal(t, "7", labels["build_id"])
	assert.Len(t, labels["job_name"], 63)

	ci = CIContext{JobName: "kubeflow/kfctl presubmit", PullBaseSHA: "_"}
	labels = ci.Labels()
	assert.Equal(t, map[string]string{"job_name": "kubeflow-kfctl-presubmit"}, labels)
}

func TestCheckoutDepth(t *testing.T) {
	ci := CIContext{RepoOwner: "kubeflow", RepoName: "kfctl"}
	assert.Equal(t, "30", CheckoutDepth(ci))

	ci.BranchName = "master"
	assert.Equal(t, "all", CheckoutDepth(ci))
}
