package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerCapturesOutput(t *testing.T) {
	var logged []string
	r := &ExecRunner{Log: func(c *Command) { logged = append(logged, c.String()) }}

	res, err := r.Run(New("/bin/sh", "-c", "echo out; echo err 1>&2"))
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"/bin/sh -c echo out; echo err 1>&2"}, logged)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	r := &ExecRunner{Log: func(*Command) {}}

	res, err := r.Run(New("/bin/sh", "-c", "echo broken 1>&2; exit 3"))
	require.Error(t, err)

	failure, ok := err.(*ExternalToolFailure)
	require.True(t, ok)
	assert.Equal(t, "sh", failure.Tool)
	assert.Equal(t, 3, failure.ExitCode)
	assert.Equal(t, "broken\n", failure.Stderr)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, failure.Error(), "broken")
}

func TestExecRunnerMissingTool(t *testing.T) {
	r := &ExecRunner{Log: func(*Command) {}}

	_, err := r.Run(New("/nonexistent/llvm-link"))
	require.Error(t, err)

	failure, ok := err.(*ExternalToolFailure)
	require.True(t, ok)
	assert.Equal(t, "llvm-link", failure.Tool)
	assert.Equal(t, -1, failure.ExitCode)
	assert.Contains(t, failure.Error(), "could not be started")
}

func TestCommandEnv(t *testing.T) {
	r := &ExecRunner{Log: func(*Command) {}}
	c := New("/bin/sh", "-c", "echo $ZERO_AR_DATE")
	c.Env = []string{"ZERO_AR_DATE=1"}

	res, err := r.Run(c)
	require.NoError(t, err)
	assert.Equal(t, "1\n", res.Stdout)
}
