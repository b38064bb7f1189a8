package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// Group is the API group of the workflow engine.
	Group = "argoproj.io"
	// Version is the API version the builder emits.
	Version = "v1alpha1"
	// WorkflowKind is the kind of the top-level document.
	WorkflowKind = "Workflow"
)

// SchemeGroupVersion is the group version used to submit workflows.
var SchemeGroupVersion = schema.GroupVersion{Group: Group, Version: Version}

// WorkflowGVK is the GroupVersionKind of a Workflow.
var WorkflowGVK = SchemeGroupVersion.WithKind(WorkflowKind)

// Workflow is the document submitted to the workflow engine.
type Workflow struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec WorkflowSpec `json:"spec"`
}

// WorkflowSpec describes the templates of a workflow and how they are entered.
type WorkflowSpec struct {
	// Entrypoint is the name of the template executed first.
	Entrypoint string `json:"entrypoint"`

	// OnExit is the name of the template executed after the entrypoint
	// regardless of its outcome.
	OnExit string `json:"onExit,omitempty"`

	// TTLSecondsAfterFinished lets the engine garbage collect the workflow.
	TTLSecondsAfterFinished *int32 `json:"ttlSecondsAfterFinished,omitempty"`

	// Volumes are shared by all templates.
	Volumes []corev1.Volume `json:"volumes,omitempty"`

	// Templates holds both DAG and container templates.
	Templates []Template `json:"templates"`
}

// Template is either a DAG template or a container template.
type Template struct {
	Name string `json:"name"`

	Metadata Metadata `json:"metadata,omitempty"`

	// Container is set for container templates.
	Container *corev1.Container `json:"container,omitempty"`

	// DAG is set for DAG templates.
	DAG *DAGTemplate `json:"dag,omitempty"`

	// ActiveDeadlineSeconds is passed through to the engine; the builder does
	// not enforce it.
	ActiveDeadlineSeconds *int64 `json:"activeDeadlineSeconds,omitempty"`

	Outputs *Outputs `json:"outputs,omitempty"`
}

// Metadata holds the labels and annotations applied to the pods of a template.
type Metadata struct {
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Outputs is kept empty by the builder but is part of the engine schema.
type Outputs struct{}

// DAGTemplate is an ordered list of tasks.
type DAGTemplate struct {
	Tasks []DAGTask `json:"tasks"`
}

// DAGTask references a template and lists the tasks it depends on.
type DAGTask struct {
	Name         string   `json:"name"`
	Template     string   `json:"template"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// IsDAG reports whether t is a DAG template.
func (t *Template) IsDAG() bool {
	return t.DAG != nil
}

// DeepCopy returns a copy of t that shares no memory with it.
func (t *Template) DeepCopy() *Template {
	if t == nil {
		return nil
	}
	out := &Template{Name: t.Name}
	out.Metadata = *t.Metadata.DeepCopy()
	if t.Container != nil {
		out.Container = t.Container.DeepCopy()
	}
	if t.DAG != nil {
		out.DAG = t.DAG.DeepCopy()
	}
	if t.ActiveDeadlineSeconds != nil {
		v := *t.ActiveDeadlineSeconds
		out.ActiveDeadlineSeconds = &v
	}
	if t.Outputs != nil {
		out.Outputs = &Outputs{}
	}
	return out
}

// DeepCopy returns a copy of m.
func (m *Metadata) DeepCopy() *Metadata {
	out := &Metadata{}
	if m.Labels != nil {
		out.Labels = make(map[string]string, len(m.Labels))
		for k, v := range m.Labels {
			out.Labels[k] = v
		}
	}
	if m.Annotations != nil {
		out.Annotations = make(map[string]string, len(m.Annotations))
		for k, v := range m.Annotations {
			out.Annotations[k] = v
		}
	}
	return out
}

// DeepCopy returns a copy of d.
func (d *DAGTemplate) DeepCopy() *DAGTemplate {
	if d == nil {
		return nil
	}
	out := &DAGTemplate{Tasks: make([]DAGTask, len(d.Tasks))}
	for i, task := range d.Tasks {
		out.Tasks[i] = DAGTask{Name: task.Name, Template: task.Template}
		if task.Dependencies != nil {
			out.Tasks[i].Dependencies = append([]string{}, task.Dependencies...)
		}
	}
	return out
}

// DeepCopy returns a copy of w that shares no memory with it.
func (w *Workflow) DeepCopy() *Workflow {
	if w == nil {
		return nil
	}
	out := &Workflow{TypeMeta: w.TypeMeta}
	w.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	out.Spec.Entrypoint = w.Spec.Entrypoint
	out.Spec.OnExit = w.Spec.OnExit
	if w.Spec.TTLSecondsAfterFinished != nil {
		v := *w.Spec.TTLSecondsAfterFinished
		out.Spec.TTLSecondsAfterFinished = &v
	}
	if w.Spec.Volumes != nil {
		out.Spec.Volumes = make([]corev1.Volume, len(w.Spec.Volumes))
		for i := range w.Spec.Volumes {
			w.Spec.Volumes[i].DeepCopyInto(&out.Spec.Volumes[i])
		}
	}
	out.Spec.Templates = make([]Template, len(w.Spec.Templates))
	for i := range w.Spec.Templates {
		out.Spec.Templates[i] = *w.Spec.Templates[i].DeepCopy()
	}
	return out
}

// Template returns the template with the given name or nil.
func (w *Workflow) Template(name string) *Template {
	for i := range w.Spec.Templates {
		if w.Spec.Templates[i].Name == name {
			return &w.Spec.Templates[i]
		}
	}
	return nil
}
