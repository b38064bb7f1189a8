// Package formatting renders workflows and check results for the CLI.
//
// Workflows can be written as YAML (the form the workflow engine accepts),
// JSON, a table of DAG tasks or a short console summary. Check results are
// always rendered as a table.
package formatting

import (
	"fmt"
	"io"
	"strings"

	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // One line per task
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatConsole, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: yaml, json, table, console)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
}

// Formatter writes a workflow to w.
type Formatter interface {
	FormatWorkflow(w io.Writer, wf *argov1.Workflow) error
}

// NewFormatter creates the formatter for options.Format.
func NewFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &jsonFormatter{}
	case FormatTable:
		return &TableFormatter{options: options}
	case FormatConsole:
		return &consoleFormatter{}
	case FormatYAML:
		fallthrough
	default:
		return &yamlFormatter{}
	}
}
