// Package ir_generator builds the LLVM tool invocations of the backend and
// compiles the C sources that accompany a module (C adapter, C stubs) into
// bitcode.
package ir_generator

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/timmyyuan/native-backend/command"
	"github.com/timmyyuan/native-backend/profile"
)

// EmitOptions select how sources are turned into bitcode.
type EmitOptions struct {
	Triple  string
	Sysroot string
	Mode    profile.Mode
}

// CompilerDatabase is an ordered set of compile commands run one after
// another.
type CompilerDatabase struct {
	Commands []*CompileCommand
	Runner   command.Runner
	// Verbose prints a progress line per command.
	Verbose bool
}

func NewCompilerDataBase(runner command.Runner) *CompilerDatabase {
	return &CompilerDatabase{Runner: runner}
}

// Add appends c unless a command with the same target is already present.
func (d *CompilerDatabase) Add(c *CompileCommand) error {
	tgt, err := c.GetTarget()
	if err != nil {
		return err
	}
	for _, other := range d.Commands {
		if t, _ := other.GetTarget(); t == tgt {
			return nil
		}
	}
	d.Commands = append(d.Commands, c)
	return nil
}

// bitcodeConflicts would change what the rewritten command writes.
var bitcodeConflicts = []string{
	"-S",
	"-flto",
	"-flto=full",
	"-flto=thin",
	"-fembed-bitcode",
	"-save-temps",
}

// EmitLLVM rewrites every command to produce unoptimized bitcode for
// opts.Triple. Optimization is left to the backend.
func (d *CompilerDatabase) EmitLLVM(clang string, opts EmitOptions) {
	flags := []string{
		"-emit-llvm",
		"-target",
		opts.Triple,
	}
	if opts.Sysroot != "" {
		flags = append(flags, "--sysroot="+opts.Sysroot)
	}
	if opts.Mode == profile.Debug {
		flags = append(flags, "-g")
	}
	flags = append(flags,
		"-Xclang",
		"-disable-O0-optnone",
		"-Xclang",
		"-disable-llvm-passes",
		"-Wno-everything",
	)

	for _, c := range d.Commands {
		c.ReplaceCompiler(clang)
		c.DropFlags(bitcodeConflicts...)
		c.ReplaceTargetExt(".bc")
		if opts.Mode == profile.Debug {
			c.SwitchToO0()
		}
		c.AddFlags(flags...)
	}
}

func (d *CompilerDatabase) Dump() (string, error) {
	b, err := json.MarshalIndent(d.Commands, "", "    ")
	if err != nil {
		return "", errors.Wrap(err, "encoding compile commands")
	}
	return string(b), nil
}

func (d *CompilerDatabase) run(index int) (string, error) {
	c := d.Commands[index]
	total := len(d.Commands)
	rate := int(math.Round(float64(index+1) / float64(total) * 100))

	tgt, err := c.GetTarget()
	if err != nil {
		return "", err
	}
	if len(c.SplitArgs()) == 0 {
		return "", errors.Errorf("empty compile command for %s", c.GetFile())
	}

	if d.Verbose {
		color.Green("building [%3d%%] %s", rate, tgt)
	}
	glog.V(5).Infof("compiling %s", c.GetFile())

	if _, err := d.Runner.Run(c.ToolCommand()); err != nil {
		if d.Verbose {
			color.Red("Failed commands:")
			for _, a := range c.SplitArgs() {
				fmt.Println(a)
			}
		}
		return "", errors.Wrapf(err, "compiling %s", c.GetFile())
	}

	if d.Verbose {
		fmt.Printf("built    [%3d%%] %s\n", rate, tgt)
	}
	return tgt, nil
}

// Run executes every command in order and returns the produced files. The
// first failure stops the run.
func (d *CompilerDatabase) Run() ([]string, error) {
	var outputs []string
	for i := range d.Commands {
		tgt, err := d.run(i)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, tgt)
	}
	return outputs, nil
}

// Load reads a compile_commands.json file. Assembly sources and duplicate
// targets are skipped.
func (d *CompilerDatabase) Load(ccjson string) error {
	b, err := os.ReadFile(ccjson)
	if err != nil {
		return errors.Wrapf(err, "reading %s", ccjson)
	}

	var commands []*CompileCommand
	if err := json.Unmarshal(b, &commands); err != nil {
		return errors.Wrapf(err, "parsing %s", ccjson)
	}

	isInvalidSource := func(file string) bool {
		return strings.HasSuffix(file, ".s") || strings.HasSuffix(file, ".S")
	}

	for _, c := range commands {
		if len(c.SplitArgs()) == 0 {
			return errors.Errorf("%s: empty command for %s", ccjson, c.GetFile())
		}
		if isInvalidSource(c.GetFile()) {
			continue
		}
		if err := d.Add(c); err != nil {
			return errors.Wrapf(err, "in %s", ccjson)
		}
	}
	return nil
}
