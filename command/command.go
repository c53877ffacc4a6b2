// Package command runs the external toolchain programs the backend drives.
package command

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
)

// Command is a single invocation of an external tool.
type Command struct {
	// Tool is the absolute path of the program.
	Tool string
	Args []string
	Dir  string
	// Env is appended to the current environment.
	Env []string
}

// New creates a command for tool with the given arguments.
func New(tool string, args ...string) *Command {
	return &Command{Tool: tool, Args: args}
}

// Name is the base name of the tool, used in diagnostics.
func (c *Command) Name() string {
	return filepath.Base(c.Tool)
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.Tool}, c.Args...), " ")
}

// Result carries what a finished tool printed.
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands. Implementations block until the tool exits.
type Runner interface {
	Run(cmd *Command) (*Result, error)
}

// ExternalToolFailure is returned for any tool that exits non-zero or cannot
// be started at all.
type ExternalToolFailure struct {
	Tool     string
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ExternalToolFailure) Error() string {
	msg := fmt.Sprintf("%s failed with exit code %d", e.Tool, e.ExitCode)
	if e.ExitCode < 0 && e.Err != nil {
		msg = fmt.Sprintf("%s could not be started: %v", e.Tool, e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Log receives every command before it runs. Nil logs through glog.
	Log func(cmd *Command)
}

// NewExecRunner returns a runner that logs invocations at glog level 3.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(c *Command) (*Result, error) {
	if r.Log != nil {
		r.Log(c)
	} else {
		glog.V(3).Infof("exec: %s", c)
	}

	cmd := exec.Command(c.Tool, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) != 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Command: c.String(),
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err == nil {
		return res, nil
	}

	res.ExitCode = -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
	}

	return res, &ExternalToolFailure{
		Tool:     c.Name(),
		Command:  res.Command,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Err:      err,
	}
}
