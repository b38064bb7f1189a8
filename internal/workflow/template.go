package workflow

import (
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"kfctl-e2e/internal/dag"
	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
)

// StepDeadlineSeconds is the per step deadline handed to the engine.
const StepDeadlineSeconds int64 = 3000

// BuildTaskTemplate returns the prototype every container step is copied
// from. cfg is expected to have its defaults applied.
func BuildTaskTemplate(cfg Config) *argov1.Template {
	layout := NewLayout(cfg.Name, cfg.AppName)
	deadline := StepDeadlineSeconds

	env := []corev1.EnvVar{
		{Name: "GOOGLE_APPLICATION_CREDENTIALS", Value: cfg.CI.CredentialsPath},
		{Name: "TEST_TARGET_NAME", Value: cfg.TestTargetName},
		{Name: "PYTHONPATH", Value: strings.Join([]string{
			layout.KubeflowTestingPy,
			layout.KfctlPy,
			layout.TFOperatorPy,
		}, ":")},
		{Name: "GOPATH", Value: layout.TestDir},
		{Name: "KUBECONFIG", Value: layout.Kubeconfig},
	}
	env = append(env, cfg.CI.Env()...)

	return &argov1.Template{
		ActiveDeadlineSeconds: &deadline,
		Metadata: argov1.Metadata{
			Labels: map[string]string{"workflow_template": TemplateLabel},
		},
		Container: &corev1.Container{
			Image:           cfg.Image,
			ImagePullPolicy: corev1.PullAlways,
			Command:         []string{},
			Env:             env,
			Resources: corev1.ResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceCPU:    resource.MustParse("1"),
					corev1.ResourceMemory: resource.MustParse("1536Mi"),
				},
				Limits: corev1.ResourceList{
					corev1.ResourceCPU:    resource.MustParse("4"),
					corev1.ResourceMemory: resource.MustParse("4Gi"),
				},
			},
			VolumeMounts: []corev1.VolumeMount{
				{Name: dag.DataVolume, MountPath: layout.MountPath},
			},
		},
		Outputs: &argov1.Outputs{},
	}
}

// newStep copies tmpl into a step with the given name and command.
func newStep(tmpl *argov1.Template, name string, command ...string) *argov1.Template {
	step := tmpl.DeepCopy()
	step.Name = name
	step.Container.Command = command
	return step
}
