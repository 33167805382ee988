package azpipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paulczy/ado-copilot-code-review/internal/env"
)

func TestOnAgent(t *testing.T) {
	assert.True(t, OnAgent(env.Vars{"TF_BUILD": "True"}))
	assert.True(t, OnAgent(env.Vars{"TF_BUILD": "true"}))
	assert.False(t, OnAgent(env.Vars{"TF_BUILD": ""}))
	assert.False(t, OnAgent(env.Vars{}))
}

func TestComplete(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	r.Complete(ResultSucceeded, "review finished")

	assert.Equal(t, "##vso[task.complete result=Succeeded;]review finished\n", buf.String())
}

func TestCompleteWithIssues(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	r.Complete(ResultSucceededWithIssues, "review finished with warnings")

	assert.Equal(t, "##vso[task.complete result=SucceededWithIssues;]review finished with warnings\n", buf.String())
}

func TestLogIssue(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	r.LogIssue(IssueError, "copilot review failed with exit code 1")

	assert.Equal(t, "##vso[task.logissue type=error;]copilot review failed with exit code 1\n", buf.String())
}

func TestSetVariable(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	r.SetVariable("reviewResult", "Succeeded")

	assert.Equal(t, "##vso[task.setvariable variable=reviewResult; isOutput=true;]Succeeded\n", buf.String())
}

func TestSetVariableSkipsBlankName(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	r.SetVariable("  ", "value")

	assert.Empty(t, buf.String())
}

func TestEscaping(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	r.Complete(ResultFailed, "line one\r\nline two")

	assert.Equal(t, "##vso[task.complete result=Failed;]line one%0D%0Aline two\n", buf.String())
}

func TestPropertyEscaping(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, true)

	r.SetVariable("weird];name", "v")

	out := buf.String()
	assert.Contains(t, out, "variable=weird%5D%3Bname;")
}

func TestDisabledReporterStaysSilent(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	r.Complete(ResultFailed, "nothing to see")
	r.LogIssue(IssueWarning, "nothing to see")
	r.SetVariable("name", "value")

	assert.Empty(t, buf.String())
}
