package formatting

import (
	"fmt"
	"io"
	"strings"

	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
	stringsutil "kfctl-e2e/pkg/strings"
)

// consoleFormatter prints one line per task in the form
// task [template] <- deps: command.
type consoleFormatter struct{}

func (f *consoleFormatter) FormatWorkflow(w io.Writer, wf *argov1.Workflow) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Workflow %s/%s\n", wf.Namespace, wf.Name)
	commands := make(map[string]string)
	for _, tmpl := range wf.Spec.Templates {
		if tmpl.Container != nil {
			commands[tmpl.Name] = strings.Join(tmpl.Container.Command, " ")
		}
	}
	for _, tmpl := range wf.Spec.Templates {
		if !tmpl.IsDAG() {
			continue
		}
		fmt.Fprintf(&b, "%s (%d tasks)\n", tmpl.Name, len(tmpl.DAG.Tasks))
		for _, task := range tmpl.DAG.Tasks {
			line := "  " + task.Name
			if task.Template != task.Name {
				line += " [" + task.Template + "]"
			}
			if len(task.Dependencies) > 0 {
				line += " <- " + strings.Join(task.Dependencies, ", ")
			}
			if cmd := commands[task.Template]; cmd != "" {
				line += ": " + stringsutil.Truncate(cmd, stringsutil.DefaultMaxLen)
			}
			b.WriteString(line + "\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
