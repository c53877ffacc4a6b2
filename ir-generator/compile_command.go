package ir_generator

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/timmyyuan/native-backend/command"
)

// CompileCommand is one entry of a compilation database. Entries carry their
// command line either split under "arguments" or as one "command" string.
type CompileCommand struct {
	Directory   string   `json:"directory"`
	Args        []string `json:"arguments,omitempty"`
	CommandLine string   `json:"command,omitempty"`
	File        string   `json:"file"`
}

// NewCompileCommand compiles file to output with compiler.
func NewCompileCommand(compiler, file, output string, flags ...string) *CompileCommand {
	args := []string{compiler}
	args = append(args, flags...)
	args = append(args, "-c", "-o", output, file)
	return &CompileCommand{
		Directory: filepath.Dir(file),
		Args:      args,
		File:      file,
	}
}

func (c *CompileCommand) String() string {
	return strings.Join(c.SplitArgs(), " ")
}

func (c *CompileCommand) SplitArgs() []string {
	if len(c.Args) != 0 {
		return c.Args
	}
	return strings.Fields(c.CommandLine)
}

// normalize moves a "command" string into Args, so every edit below works on
// one representation.
func (c *CompileCommand) normalize() {
	if len(c.Args) == 0 {
		c.Args = strings.Fields(c.CommandLine)
	}
	c.CommandLine = ""
}

func (c *CompileCommand) GetFile() string {
	return c.File
}

func (c *CompileCommand) GetDirectory() string {
	return c.Directory
}

// GetTarget is the file named by -o, or <file>.o without one.
func (c *CompileCommand) GetTarget() (string, error) {
	splits := c.SplitArgs()
	for i := 0; i < len(splits); i++ {
		if splits[i] != "-o" {
			continue
		}
		if i+1 >= len(splits) {
			return "", errors.Errorf("%s: no filename behind `-o` flag", c.File)
		}
		return absolute(c.GetDirectory(), splits[i+1]), nil
	}

	ext := filepath.Ext(c.File)
	return absolute(c.GetDirectory(), c.File[:len(c.File)-len(ext)]+".o"), nil
}

func (c *CompileCommand) ReplaceCompiler(newcompiler string) {
	c.normalize()
	if len(c.Args) != 0 {
		c.Args[0] = newcompiler
	}
}

func (c *CompileCommand) ReplaceTargetExt(newext string) {
	c.normalize()
	splits := c.Args
	for i := 0; i+1 < len(splits); i++ {
		if splits[i] != "-o" {
			continue
		}

		filename := splits[i+1]
		filename = filename[:len(filename)-len(filepath.Ext(filename))]
		splits[i+1] = filename + newext
		return
	}

	// no -o flag
	base := c.File[:len(c.File)-len(filepath.Ext(c.File))]
	c.Args = append(c.Args, "-o", base+newext)
}

// AddFlags inserts flags in front of -c, or at the end without one.
func (c *CompileCommand) AddFlags(flags ...string) {
	c.normalize()
	splits := c.Args
	var index int
	for index = 0; index < len(splits); index += 1 {
		if splits[index] == "-c" {
			break
		}
	}
	var newsplits []string
	newsplits = append(newsplits, splits[:index]...)
	newsplits = append(newsplits, flags...)
	newsplits = append(newsplits, splits[index:]...)

	c.Args = newsplits
}

func (c *CompileCommand) DropFlags(flags ...string) {
	c.normalize()
	fmap := make(map[string]bool)
	for _, f := range flags {
		fmap[f] = true
	}

	var newsplits []string
	for _, s := range c.Args {
		if !fmap[s] {
			newsplits = append(newsplits, s)
		}
	}
	c.Args = newsplits
}

var optimizationFlags = map[string]bool{
	"-O1":    true,
	"-O2":    true,
	"-O3":    true,
	"-Os":    true,
	"-Oz":    true,
	"-Ofast": true,
}

func (c *CompileCommand) SwitchToO0() {
	c.normalize()
	for i, s := range c.Args {
		if optimizationFlags[s] {
			c.Args[i] = "-O0"
		}
	}
}

// ToolCommand is the runnable form of c.
func (c *CompileCommand) ToolCommand() *command.Command {
	args := c.SplitArgs()
	cmd := command.New(args[0], args[1:]...)
	cmd.Dir = c.GetDirectory()
	return cmd
}

func absolute(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
