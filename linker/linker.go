// Package linker runs the final, platform-specific link of the object files
// produced by the backend.
package linker

import (
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/timmyyuan/native-backend/command"
	"github.com/timmyyuan/native-backend/diag"
	"github.com/timmyyuan/native-backend/profile"
)

// Dependency is a prebuilt native dependency of the session.
type Dependency struct {
	Name string
	// IncludedBinaries are archives or objects linked into the output.
	IncludedBinaries []string
	// LinkerOpts are the linker flags the dependency asks for.
	LinkerOpts []string
}

// Config describes one link.
type Config struct {
	Produce         ProduceKind
	StaticFramework bool
	Mode            profile.Mode
	// Output is the declared artifact path. For frameworks it is the bundle
	// directory.
	Output string
	NoMain bool

	// Args are user-declared linker arguments.
	Args []string
	// BitcodeEmbedding are linker options for embedded bitcode.
	BitcodeEmbedding []string
	Dependencies     []Dependency
}

// Artifact is a finished link.
type Artifact struct {
	Kind OutputKind
	// Path is the linked file; for frameworks, the library inside the bundle.
	Path string
	// DebugSymbols is the dSYM bundle path, next to the declared output. It
	// is set for every link; only Apple debug links actually create it.
	DebugSymbols string
}

// Linker links for one platform profile.
type Linker struct {
	profile profile.Profile
	runner  command.Runner
}

func New(p profile.Profile, runner command.Runner) *Linker {
	return &Linker{profile: p, runner: runner}
}

// job is everything a platform builder needs to render its commands.
type job struct {
	kind    OutputKind
	mode    profile.Mode
	objects []string
	output  string
	dsym    string
	// args are the translated linker arguments.
	args []string
	// libraries are dependency binaries followed by system libraries.
	libraries []string
	// binaries are the dependency binaries alone.
	binaries []string
}

// Validate checks cfg without touching the file system.
func (l *Linker) Validate(cfg Config) error {
	if _, err := DetermineOutput(cfg.Produce, cfg.StaticFramework); err != nil {
		return err
	}
	if cfg.Produce == Framework {
		if _, err := NewFrameworkLayout(l.profile.Base().Target, cfg.Output); err != nil {
			return err
		}
	}
	return nil
}

// Link links objects into the artifact described by cfg. Whatever was at the
// destination before is removed first, and a failed link leaves nothing
// behind.
func (l *Linker) Link(objects []string, cfg Config) (*Artifact, error) {
	if len(objects) == 0 {
		return nil, errors.New("no object files to link")
	}
	kind, err := DetermineOutput(cfg.Produce, cfg.StaticFramework)
	if err != nil {
		return nil, err
	}

	base := l.profile.Base()
	output := cfg.Output
	var frameworkArgs []string
	if cfg.Produce == Framework {
		layout, err := NewFrameworkLayout(base.Target, cfg.Output)
		if err != nil {
			return nil, err
		}
		output = layout.Library()
		frameworkArgs = layout.LinkerArgs()
	}

	j := &job{
		kind:    kind,
		mode:    cfg.Mode,
		objects: objects,
		output:  output,
		dsym:    cfg.Output + ".dSYM",
	}

	driver := base.Linker.CompilerDriver
	if kind == Executable && !cfg.NoMain {
		j.args = append(j.args, AsLinkerArgs(base.Linker.EntrySelector, driver)...)
	}
	j.args = append(j.args, AsLinkerArgs(cfg.Args, driver)...)
	j.args = append(j.args, AsLinkerArgs(cfg.BitcodeEmbedding, driver)...)
	for _, dep := range cfg.Dependencies {
		j.args = append(j.args, AsLinkerArgs(dep.LinkerOpts, driver)...)
		j.binaries = append(j.binaries, dep.IncludedBinaries...)
	}
	j.args = append(j.args, frameworkArgs...)
	j.libraries = append(append([]string{}, j.binaries...), base.Linker.SystemLibs...)

	if err := os.RemoveAll(output); err != nil {
		return nil, errors.Wrapf(err, "removing previous %s", output)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", filepath.Dir(output))
	}

	commands, err := profile.Visit[[]*command.Command](l.profile, &builder{job: j})
	if err != nil {
		return nil, err
	}

	if len(commands) == 0 {
		err = copyFile(objects[0], output)
	}
	for _, cmd := range commands {
		glog.V(5).Infof("linker: running %s", cmd.Name())
		if _, err = l.runner.Run(cmd); err != nil {
			err = &diag.CompilationError{Tool: toolName(cmd, err), Err: err}
			break
		}
	}
	if err != nil {
		_ = os.RemoveAll(output)
		_ = os.RemoveAll(j.dsym)
		return nil, err
	}

	return &Artifact{Kind: kind, Path: output, DebugSymbols: j.dsym}, nil
}

func toolName(cmd *command.Command, err error) string {
	if failure, ok := errors.Cause(err).(*command.ExternalToolFailure); ok {
		return failure.Tool
	}
	return cmd.Name()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s", src)
	}
	return out.Close()
}
