package main

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/timmyyuan/native-backend/command"
	"github.com/timmyyuan/native-backend/diag"
)

func TestReportErrorPrintsLinkerDiagnostics(t *testing.T) {
	failure := &command.ExternalToolFailure{
		Tool:     "ld",
		Command:  "/deps/ld -o hello result.o",
		ExitCode: 1,
		Stderr:   "ld: symbol(s) not found for architecture x86_64\n",
	}
	var buf bytes.Buffer
	reportError(&buf, errors.Wrap(&diag.CompilationError{Tool: "ld", Err: failure}, "linking"))

	out := buf.String()
	assert.Contains(t, out, "error: linking: ld invocation reported errors")
	assert.Contains(t, out, "failed command: /deps/ld -o hello result.o")
	assert.Contains(t, out, "ld: symbol(s) not found for architecture x86_64")
}

func TestReportErrorPlain(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, diag.Configurationf("unknown target %q", "amiga"))

	assert.Contains(t, buf.String(), `configuration error: unknown target "amiga"`)
	assert.NotContains(t, buf.String(), "failed command")
}
