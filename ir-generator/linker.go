package ir_generator

import (
	"github.com/timmyyuan/native-backend/command"
)

// Linker merges bitcode files with llvm-link.
type Linker struct {
	Name    string
	Output  string
	Targets []string
}

func NewLLVMLinker(tool string, output string, targets ...string) *Linker {
	return &Linker{
		Name:    tool,
		Output:  output,
		Targets: targets,
	}
}

func (l *Linker) Command() *command.Command {
	args := append([]string{}, l.Targets...)
	args = append(args, "-o", l.Output)
	return command.New(l.Name, args...)
}
