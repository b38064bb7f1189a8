package dag

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/internal/dependency"
	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
	"kfctl-e2e/pkg/logging"
)

const (
	// EntryDAG is the DAG the engine executes first.
	EntryDAG = "e2e"
	// TestsDAG holds the integration tests run against a deployment.
	TestsDAG = "tests"
	// ExitDAG runs after EntryDAG whether it succeeded or not.
	ExitDAG = "exit-handler"

	// TTLSecondsAfterFinished lets the engine garbage collect finished
	// workflows after 7 days so they do not pile up on the API server.
	TTLSecondsAfterFinished int32 = 7 * 24 * 60 * 60

	// DataVolume is the name of the shared volume holding test data.
	DataVolume = "kubeflow-test-volume"
	// NFSVolumeClaim is the claim backing DataVolume.
	NFSVolumeClaim = "nfs-external"
)

// Document is a workflow under construction. DAGs and tasks can only be
// appended; every dependency must name a task already present in the same
// DAG. Document is not safe for concurrent use.
type Document struct {
	name      string
	namespace string
	labels    map[string]string

	entrypoint string
	onExit     string
	volumes    []corev1.Volume

	// templates in creation order; DAG templates are created by AddDAG.
	templates []*argov1.Template
	byName    map[string]*argov1.Template

	graphs map[string]*dependency.Graph
	// invokes maps a DAG to the DAGs it invokes, to reject mutual invocation.
	invokes map[string][]string
}

// NewWorkflow initialises a document with the entry, tests and exit DAGs,
// the shared data volume and the garbage collection deadline.
func NewWorkflow(name, namespace string) *Document {
	d := &Document{
		name:       name,
		namespace:  namespace,
		labels:     map[string]string{"workflow": name},
		entrypoint: EntryDAG,
		onExit:     ExitDAG,
		volumes: []corev1.Volume{
			{
				Name: DataVolume,
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
						ClaimName: NFSVolumeClaim,
					},
				},
			},
		},
		byName:  make(map[string]*argov1.Template),
		graphs:  make(map[string]*dependency.Graph),
		invokes: make(map[string][]string),
	}
	for _, dagName := range []string{EntryDAG, TestsDAG, ExitDAG} {
		// Cannot fail on a fresh document.
		_ = d.AddDAG(dagName)
	}
	return d
}

// Name returns the workflow name.
func (d *Document) Name() string { return d.name }

// Namespace returns the workflow namespace.
func (d *Document) Namespace() string { return d.namespace }

// Entrypoint returns the name of the DAG executed first.
func (d *Document) Entrypoint() string { return d.entrypoint }

// OnExit returns the name of the DAG executed unconditionally at the end.
func (d *Document) OnExit() string { return d.onExit }

// SetLabel sets a label on the workflow metadata.
func (d *Document) SetLabel(key, value string) {
	d.labels[key] = value
}

// Labels returns a copy of the workflow labels.
func (d *Document) Labels() map[string]string {
	out := make(map[string]string, len(d.labels))
	for k, v := range d.labels {
		out[k] = v
	}
	return out
}

// AddDAG adds an empty DAG template. The name must not be used by any other
// template.
func (d *Document) AddDAG(name string) error {
	if _, exists := d.byName[name]; exists {
		return api.NewDuplicateError("template", name, "")
	}
	t := &argov1.Template{Name: name, DAG: &argov1.DAGTemplate{Tasks: []argov1.DAGTask{}}}
	d.templates = append(d.templates, t)
	d.byName[name] = t
	d.graphs[name] = dependency.New(name)
	return nil
}

// HasDAG reports whether a DAG with the given name exists.
func (d *Document) HasDAG(name string) bool {
	_, ok := d.graphs[name]
	return ok
}

// DAGNames returns the DAG names in creation order.
func (d *Document) DAGNames() []string {
	var out []string
	for _, t := range d.templates {
		if t.IsDAG() {
			out = append(out, t.Name)
		}
	}
	return out
}

// InsertTask adds node as a container template and appends a task running it
// to dagName with exactly deps as its dependencies. It fails with a
// ReferenceError, leaving the document unmodified, if dagName does not exist,
// a dependency is not yet a task of dagName, or the task name is taken.
//
// The returned template is a copy; use its Name as a future dependency.
func (d *Document) InsertTask(dagName string, node *argov1.Template, deps ...string) (*argov1.Template, error) {
	if node == nil || node.Name == "" {
		return nil, api.NewValidationError("task", "", "a task needs a name")
	}
	if node.IsDAG() {
		return nil, api.NewValidationError("task", node.Name, "use AddDAG and InsertSubDAGInvocation for DAG templates")
	}
	g, err := d.graph(dagName)
	if err != nil {
		return nil, err
	}
	if _, exists := d.byName[node.Name]; exists {
		return nil, api.NewDuplicateError("template", node.Name, "")
	}
	if err := g.CanAdd(toNode(node.Name, deps)); err != nil {
		return nil, err
	}

	stored := node.DeepCopy()
	d.templates = append(d.templates, stored)
	d.byName[stored.Name] = stored
	d.appendTask(dagName, g, stored.Name, stored.Name, deps)

	logging.Debug("DAGDocument", "Inserted task %s into dag %s (deps: %v)", stored.Name, dagName, deps)
	return stored.DeepCopy(), nil
}

// InsertSubDAGInvocation appends a task to dagName that runs targetDAG to
// completion. Besides the checks of InsertTask, the target must be an
// existing DAG other than dagName that does not itself invoke dagName.
func (d *Document) InsertSubDAGInvocation(dagName, invocationName, targetDAG string, deps ...string) error {
	if invocationName == "" {
		return api.NewValidationError("task", "", "a task needs a name")
	}
	g, err := d.graph(dagName)
	if err != nil {
		return err
	}
	if _, ok := d.graphs[targetDAG]; !ok {
		return api.NewReferenceError("dag", targetDAG, "")
	}
	if targetDAG == dagName || d.invokesTransitively(targetDAG, dagName) {
		return &api.ReferenceError{
			Kind:    "dag",
			Name:    targetDAG,
			DAG:     dagName,
			Message: fmt.Sprintf("dag %q cannot invoke %q: invocation cycle", dagName, targetDAG),
		}
	}
	if err := g.CanAdd(toNode(invocationName, deps)); err != nil {
		return err
	}

	d.appendTask(dagName, g, invocationName, targetDAG, deps)
	d.invokes[dagName] = append(d.invokes[dagName], targetDAG)

	logging.Debug("DAGDocument", "Inserted invocation %s of dag %s into dag %s (deps: %v)", invocationName, targetDAG, dagName, deps)
	return nil
}

// InsertTaskReference appends a task named stepName to dagName that runs the
// existing container template templateName, so one template can be executed
// more than once.
func (d *Document) InsertTaskReference(dagName, stepName, templateName string, deps ...string) error {
	if stepName == "" {
		return api.NewValidationError("task", "", "a task needs a name")
	}
	g, err := d.graph(dagName)
	if err != nil {
		return err
	}
	t, ok := d.byName[templateName]
	if !ok || t.IsDAG() {
		return api.NewReferenceError("template", templateName, "")
	}
	if err := g.CanAdd(toNode(stepName, deps)); err != nil {
		return err
	}
	d.appendTask(dagName, g, stepName, templateName, deps)
	return nil
}

// SetWorkingDir overrides the working directory of a container template that
// was already inserted.
func (d *Document) SetWorkingDir(templateName, dir string) error {
	t, ok := d.byName[templateName]
	if !ok || t.Container == nil {
		return api.NewReferenceError("template", templateName, "")
	}
	t.Container.WorkingDir = dir
	return nil
}

// ApplyTemplateLabels merges the workflow labels into the metadata of every
// template so the engine propagates them to pods.
func (d *Document) ApplyTemplateLabels() {
	for _, t := range d.templates {
		if t.Metadata.Labels == nil {
			t.Metadata.Labels = make(map[string]string, len(d.labels))
		}
		for k, v := range d.labels {
			t.Metadata.Labels[k] = v
		}
	}
}

// Template returns a copy of the named template or nil.
func (d *Document) Template(name string) *argov1.Template {
	return d.byName[name].DeepCopy()
}

// Tasks returns a copy of the tasks of dagName in insertion order.
func (d *Document) Tasks(dagName string) []argov1.DAGTask {
	t, ok := d.byName[dagName]
	if !ok || !t.IsDAG() {
		return nil
	}
	return t.DAG.DeepCopy().Tasks
}

// Task returns a copy of the named task of dagName or nil.
func (d *Document) Task(dagName, taskName string) *argov1.DAGTask {
	for _, task := range d.Tasks(dagName) {
		if task.Name == taskName {
			task := task
			return &task
		}
	}
	return nil
}

// Dependencies returns the dependencies of a task, or nil if it does not exist.
func (d *Document) Dependencies(dagName, taskName string) []string {
	g, ok := d.graphs[dagName]
	if !ok || !g.Has(dependency.NodeID(taskName)) {
		return nil
	}
	deps := g.Dependencies(dependency.NodeID(taskName))
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		out = append(out, string(dep))
	}
	return out
}

// Independent reports whether two tasks of dagName have no dependency path
// between them and may therefore run concurrently.
func (d *Document) Independent(dagName, a, b string) bool {
	g, ok := d.graphs[dagName]
	if !ok {
		return false
	}
	return g.Independent(dependency.NodeID(a), dependency.NodeID(b))
}

// Workflow returns the typed document. The result shares no memory with d.
func (d *Document) Workflow() *argov1.Workflow {
	ttl := TTLSecondsAfterFinished
	wf := &argov1.Workflow{
		TypeMeta: metav1.TypeMeta{
			APIVersion: argov1.SchemeGroupVersion.String(),
			Kind:       argov1.WorkflowKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      d.name,
			Namespace: d.namespace,
			Labels:    d.Labels(),
		},
		Spec: argov1.WorkflowSpec{
			Entrypoint:              d.entrypoint,
			OnExit:                  d.onExit,
			TTLSecondsAfterFinished: &ttl,
		},
	}
	for i := range d.volumes {
		wf.Spec.Volumes = append(wf.Spec.Volumes, *d.volumes[i].DeepCopy())
	}
	wf.Spec.Templates = make([]argov1.Template, 0, len(d.templates))
	for _, t := range d.templates {
		wf.Spec.Templates = append(wf.Spec.Templates, *t.DeepCopy())
	}
	return wf
}

func (d *Document) graph(dagName string) (*dependency.Graph, error) {
	g, ok := d.graphs[dagName]
	if !ok {
		return nil, api.NewReferenceError("dag", dagName, "")
	}
	return g, nil
}

func (d *Document) appendTask(dagName string, g *dependency.Graph, taskName, templateName string, deps []string) {
	// CanAdd was checked by the caller.
	_ = g.AddNode(toNode(taskName, deps))
	task := argov1.DAGTask{Name: taskName, Template: templateName}
	if len(deps) > 0 {
		for _, dep := range g.Dependencies(dependency.NodeID(taskName)) {
			task.Dependencies = append(task.Dependencies, string(dep))
		}
	}
	dagTemplate := d.byName[dagName]
	dagTemplate.DAG.Tasks = append(dagTemplate.DAG.Tasks, task)
}

func (d *Document) invokesTransitively(from, to string) bool {
	visited := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range d.invokes[cur] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func toNode(name string, deps []string) dependency.Node {
	n := dependency.Node{ID: dependency.NodeID(name)}
	for _, dep := range deps {
		n.DependsOn = append(n.DependsOn, dependency.NodeID(dep))
	}
	return n
}
