package ir_generator

import (
	"os"
	"os/exec"

	"github.com/timmyyuan/native-backend/command"
)

type LLVMDis struct {
	Name   string
	Input  string
	Output string
}

func NewLLVMDis(tool, input, output string) *LLVMDis {
	return &LLVMDis{
		Name:   tool,
		Input:  input,
		Output: output,
	}
}

// NeedRun is false when llvm-dis is not installed or there is nothing to
// disassemble.
func (d *LLVMDis) NeedRun() bool {
	if _, err := exec.LookPath(d.Name); err != nil {
		return false
	}

	if _, err := os.Stat(d.Input); os.IsNotExist(err) {
		return false
	}

	return true
}

func (d *LLVMDis) Command() *command.Command {
	return command.New(d.Name, d.Input, "-o", d.Output)
}
