package formatting

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
)

// Marshal serializes a workflow as YAML or JSON. Field names follow the json
// tags of the workflow types, which is what the engine expects in both
// encodings.
func Marshal(wf *argov1.Workflow, format OutputFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		b, err := json.MarshalIndent(wf, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal workflow %s as json: %w", wf.Name, err)
		}
		return append(b, '\n'), nil
	case FormatYAML, "":
		b, err := yaml.Marshal(wf)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal workflow %s as yaml: %w", wf.Name, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("format %q cannot be marshaled", format)
	}
}

// Unmarshal parses a workflow written by Marshal in either encoding.
func Unmarshal(data []byte) (*argov1.Workflow, error) {
	wf := &argov1.Workflow{}
	if err := yaml.Unmarshal(data, wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	return wf, nil
}

type yamlFormatter struct{}

func (f *yamlFormatter) FormatWorkflow(w io.Writer, wf *argov1.Workflow) error {
	b, err := Marshal(wf, FormatYAML)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

type jsonFormatter struct{}

func (f *jsonFormatter) FormatWorkflow(w io.Writer, wf *argov1.Workflow) error {
	b, err := Marshal(wf, FormatJSON)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// PrettyJSON renders v as indented JSON for debug logs, or in its %v form
// when it cannot be encoded.
func PrettyJSON(v any) string {
	if b, err := json.MarshalIndent(v, "", "  "); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
