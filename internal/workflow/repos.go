package workflow

import (
	"sort"
	"strings"

	"kfctl-e2e/internal/api"
)

// DefaultRepos are checked out by every run.
var DefaultRepos = []string{
	"kubeflow/kfctl@HEAD",
	"kubeflow/kubeflow@HEAD",
	"kubeflow/testing@HEAD",
	"kubeflow/tf-operator@HEAD",
}

// ParseRepos splits a comma separated list of owner/repo@ref entries.
func ParseRepos(list string) []string {
	var repos []string
	for _, r := range strings.Split(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			repos = append(repos, r)
		}
	}
	return repos
}

// CombineRepos merges owner/repo@ref entries; a later entry for the same
// owner/repo overrides the ref of an earlier one. The result is sorted by
// owner/repo and rendered in the form the checkout script expects.
func CombineRepos(repos ...string) (string, error) {
	refs := make(map[string]string, len(repos))
	for _, r := range repos {
		name, ref, ok := strings.Cut(r, "@")
		if !ok || name == "" || ref == "" || strings.Count(name, "/") != 1 {
			return "", api.NewValidationError("repo", r, "must be in the form owner/repo@ref")
		}
		refs[name] = ref
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"@"+refs[name])
	}
	return strings.Join(parts, ","), nil
}

// ValuesString renders key=value pairs sorted by key and joined by commas,
// the format kfctl tests use for substitution into a KfDef.
func ValuesString(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values[k])
	}
	return strings.Join(pairs, ",")
}
