package formatting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	argov1 "kfctl-e2e/pkg/apis/argo/v1alpha1"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) *TableFormatter {
	return &TableFormatter{options: options}
}

// FormatWorkflow lists every DAG task with the template it runs and its
// dependencies, DAGs in document order.
func (f *TableFormatter) FormatWorkflow(w io.Writer, wf *argov1.Workflow) error {
	t := f.createTable(w)
	t.SetTitle(fmt.Sprintf("%s (entrypoint %s, onExit %s)", wf.Name, wf.Spec.Entrypoint, wf.Spec.OnExit))
	t.AppendHeader(f.header("DAG", "TASK", "TEMPLATE", "DEPENDENCIES"))

	for _, tmpl := range wf.Spec.Templates {
		if !tmpl.IsDAG() {
			continue
		}
		if len(tmpl.DAG.Tasks) == 0 {
			t.AppendRow(table.Row{tmpl.Name, f.dim("(empty)"), "", ""})
			continue
		}
		for _, task := range tmpl.DAG.Tasks {
			deps := strings.Join(task.Dependencies, ", ")
			if deps == "" {
				deps = f.dim("-")
			}
			tmplName := task.Template
			if sub := wf.Template(task.Template); sub != nil && sub.IsDAG() {
				tmplName = f.color(text.FgHiMagenta, tmplName+" (dag)")
			}
			t.AppendRow(table.Row{tmpl.Name, task.Name, tmplName, deps})
		}
		t.AppendSeparator()
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}})
	t.Render()
	return nil
}

// FormatRows renders a generic table, used for check results. A row whose
// last cell is "FAILED" is highlighted.
func (f *TableFormatter) FormatRows(w io.Writer, headers []string, rows [][]string) {
	t := f.createTable(w)
	t.AppendHeader(f.header(headers...))
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		if n := len(row); n > 0 {
			switch row[n-1] {
			case "FAILED":
				r[n-1] = f.color(text.FgRed, row[n-1])
			case "READY", "OK":
				r[n-1] = f.color(text.FgGreen, row[n-1])
			}
		}
		t.AppendRow(r)
	}
	t.Render()
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if f.options.Color {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func (f *TableFormatter) header(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		row[i] = f.color(text.FgHiCyan, n)
	}
	return row
}

func (f *TableFormatter) color(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *TableFormatter) dim(s string) string {
	return f.color(text.Faint, s)
}
