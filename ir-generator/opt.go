package ir_generator

import (
	"github.com/timmyyuan/native-backend/command"
)

// Opt runs the external optimizer over one bitcode file.
type Opt struct {
	Name   string
	Flags  []string
	Input  string
	Output string
}

func NewOpt(tool, input, output string, flags ...string) *Opt {
	return &Opt{
		Name:   tool,
		Flags:  flags,
		Input:  input,
		Output: output,
	}
}

func (o *Opt) Command() *command.Command {
	args := append([]string{}, o.Flags...)
	args = append(args, o.Input, "-o", o.Output)
	return command.New(o.Name, args...)
}

// Llc compiles one bitcode file to an object file.
type Llc struct {
	Name   string
	Flags  []string
	Input  string
	Output string
}

func NewLlc(tool, input, output string, flags ...string) *Llc {
	return &Llc{
		Name:   tool,
		Flags:  flags,
		Input:  input,
		Output: output,
	}
}

func (l *Llc) Command() *command.Command {
	args := append([]string{}, l.Flags...)
	args = append(args, "-filetype=obj", l.Input, "-o", l.Output)
	return command.New(l.Name, args...)
}
