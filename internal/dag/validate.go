package dag

import (
	"errors"
	"fmt"

	"kfctl-e2e/internal/api"
	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
)

// Validate checks a typed workflow the way Document enforces it during
// construction: the entrypoint and onExit templates exist, every task runs an
// existing template, and every dependency names a task listed earlier in the
// same DAG. The last rule makes a cycle impossible. Tasks must be named. All problems are joined
// into the returned error.
func Validate(wf *argov1.Workflow) error {
	if wf == nil {
		return api.NewValidationError("workflow", "", "is nil")
	}
	var errs []error

	templates := make(map[string]*argov1.Template, len(wf.Spec.Templates))
	for i := range wf.Spec.Templates {
		t := &wf.Spec.Templates[i]
		if _, dup := templates[t.Name]; dup {
			errs = append(errs, api.NewDuplicateError("template", t.Name, ""))
			continue
		}
		templates[t.Name] = t
	}

	for _, ref := range []struct{ field, name string }{
		{"entrypoint", wf.Spec.Entrypoint},
		{"onExit", wf.Spec.OnExit},
	} {
		if ref.name == "" {
			continue
		}
		if t, ok := templates[ref.name]; !ok || !t.IsDAG() {
			errs = append(errs, &api.ReferenceError{
				Kind:    "dag",
				Name:    ref.name,
				Message: fmt.Sprintf("%s references unknown dag %q", ref.field, ref.name),
			})
		}
	}

	for _, t := range wf.Spec.Templates {
		if !t.IsDAG() {
			continue
		}
		seen := make(map[string]bool, len(t.DAG.Tasks))
		for _, task := range t.DAG.Tasks {
			if task.Name == "" {
				errs = append(errs, api.NewValidationError("task", "", fmt.Sprintf("task of dag %q has no name", t.Name)))
				continue
			}
			if seen[task.Name] {
				errs = append(errs, api.NewDuplicateError("task", task.Name, t.Name))
				continue
			}
			if _, ok := templates[task.Template]; !ok {
				errs = append(errs, api.NewReferenceError("template", task.Template, t.Name))
			}
			for _, dep := range task.Dependencies {
				if !seen[dep] {
					errs = append(errs, api.NewReferenceError("dependency", dep, t.Name))
				}
			}
			seen[task.Name] = true
		}
	}
	return errors.Join(errs...)
}
