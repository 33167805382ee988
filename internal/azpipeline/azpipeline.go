// Package azpipeline emits Azure Pipelines logging commands to the step output.
//
// The agent interprets lines of the form ##vso[area.action property=value;]data
// on stdout. Everything the task tells the agent (completion result, issues,
// output variables) goes through a Reporter so tests can capture the stream.
package azpipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/paulczy/ado-copilot-code-review/internal/env"
)

// Result is the completion state reported to the agent via task.complete.
type Result string

const (
	// ResultSucceeded marks the task green.
	ResultSucceeded Result = "Succeeded"
	// ResultSucceededWithIssues marks the task green with a warning marker.
	ResultSucceededWithIssues Result = "SucceededWithIssues"
	// ResultFailed marks the task red.
	ResultFailed Result = "Failed"
)

// IssueType selects the task.logissue severity.
type IssueType string

const (
	// IssueError renders as a red error annotation in the pipeline UI.
	IssueError IssueType = "error"
	// IssueWarning renders as an orange warning annotation.
	IssueWarning IssueType = "warning"
)

// OnAgent reports whether the process runs under an Azure Pipelines agent.
// The agent always sets TF_BUILD=True for task processes.
func OnAgent(vars env.Vars) bool {
	return strings.EqualFold(vars.Get("TF_BUILD"), "true")
}

// Reporter writes logging commands when enabled and stays silent otherwise,
// so local runs outside an agent do not spray ##vso noise.
type Reporter struct {
	out     io.Writer
	enabled bool
}

// NewReporter constructs a Reporter writing to out. Pass enabled=false for
// runs outside an agent.
func NewReporter(out io.Writer, enabled bool) *Reporter {
	return &Reporter{out: out, enabled: enabled}
}

// Complete reports the final task result together with a completion message.
func (r *Reporter) Complete(result Result, message string) {
	r.command("task.complete", map[string]string{"result": string(result)}, message)
}

// LogIssue attaches an error or warning annotation to the task.
func (r *Reporter) LogIssue(kind IssueType, message string) {
	r.command("task.logissue", map[string]string{"type": string(kind)}, message)
}

// SetVariable publishes an output variable for downstream pipeline steps.
func (r *Reporter) SetVariable(name, value string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	r.command("task.setvariable", map[string]string{"variable": name, "isOutput": "true"}, value)
}

func (r *Reporter) command(action string, props map[string]string, data string) {
	if !r.enabled || r.out == nil {
		return
	}

	// Property order is fixed per action so the emitted line is deterministic.
	var order []string
	switch action {
	case "task.complete":
		order = []string{"result"}
	case "task.logissue":
		order = []string{"type"}
	case "task.setvariable":
		order = []string{"variable", "isOutput"}
	}

	var b strings.Builder
	b.WriteString("##vso[")
	b.WriteString(action)
	for _, key := range order {
		if val, ok := props[key]; ok {
			b.WriteString(" ")
			b.WriteString(key)
			b.WriteString("=")
			b.WriteString(escapeProperty(val))
			b.WriteString(";")
		}
	}
	b.WriteString("]")
	b.WriteString(escapeData(data))

	fmt.Fprintln(r.out, b.String())
}

// escapeData encodes newlines so multi-line data survives as a single command.
func escapeData(value string) string {
	value = strings.ReplaceAll(value, "\r", "%0D")
	value = strings.ReplaceAll(value, "\n", "%0A")
	return value
}

// escapeProperty additionally encodes the command delimiters.
func escapeProperty(value string) string {
	value = escapeData(value)
	value = strings.ReplaceAll(value, "]", "%5D")
	value = strings.ReplaceAll(value, ";", "%3B")
	return value
}
