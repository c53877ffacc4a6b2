// Package commandtest provides a Runner that records invocations instead of
// running them.
package commandtest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/timmyyuan/native-backend/command"
)

// Recorder records every command and creates the file named by its output
// argument, so that later stages find their inputs on disk.
type Recorder struct {
	Commands []*command.Command

	// Fail makes the named tool (base name) exit with status 1.
	Fail map[string]bool
	// Stderr is reported by failing tools.
	Stderr string
}

// Run implements command.Runner.
func (r *Recorder) Run(c *command.Command) (*command.Result, error) {
	r.Commands = append(r.Commands, c)
	res := &command.Result{Command: c.String()}

	if r.Fail[c.Name()] {
		res.ExitCode = 1
		res.Stderr = r.Stderr
		if out := Output(c); out != "" {
			// a partial artifact, as a crashing linker would leave behind
			_ = os.WriteFile(out, []byte("partial"), 0o644)
		}
		return res, &command.ExternalToolFailure{
			Tool:     c.Name(),
			Command:  res.Command,
			ExitCode: 1,
			Stderr:   r.Stderr,
		}
	}

	if out := Output(c); out != "" {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return res, err
		}
		if err := os.WriteFile(out, []byte(c.String()), 0o644); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Tools lists the base names of the recorded tools in order.
func (r *Recorder) Tools() []string {
	var names []string
	for _, c := range r.Commands {
		names = append(names, c.Name())
	}
	return names
}

// Output finds the output path of a command: the argument after "-o", an
// "-o=" argument, or the archive of an ar invocation (ar, llvm-ar,
// <triple>-ar).
func Output(c *command.Command) string {
	if (c.Name() == "ar" || strings.HasSuffix(c.Name(), "-ar")) && len(c.Args) > 1 {
		return c.Args[1]
	}
	for i, a := range c.Args {
		if a == "-o" && i+1 < len(c.Args) {
			return c.Args[i+1]
		}
		if strings.HasPrefix(a, "-o=") {
			return strings.TrimPrefix(a, "-o=")
		}
	}
	return ""
}
