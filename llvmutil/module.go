// Package llvmutil owns every in-process LLVM handle of a session: the
// bitcode module being assembled, the target machine and the pass managers
// that run an optimizer.Plan over it.
package llvmutil

import (
	"os"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"github.com/timmyyuan/native-backend/diag"
)

var initOnce sync.Once

// Initialize registers targets and passes with LLVM. It is safe to call from
// every entry point; only the first call does any work.
func Initialize() {
	initOnce.Do(func() {
		initializePassRegistry()
		llvm.InitializeAllTargetInfos()
		llvm.InitializeAllTargets()
		llvm.InitializeAllTargetMCs()
		llvm.InitializeAllAsmParsers()
		llvm.InitializeAllAsmPrinters()
		glog.V(5).Info("llvm targets initialized")
	})
}

// Module is a bitcode module owned by the session.
type Module struct {
	mod  llvm.Module
	name string

	// Coverage contributes the late passes when a plan asks for them.
	Coverage CoveragePasses
}

// ParseBitcodeFile loads path as the session's main module.
func ParseBitcodeFile(path string) (*Module, error) {
	Initialize()
	mod, err := llvm.ParseBitcodeFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading bitcode %s", path)
	}
	return &Module{mod: mod, name: path}, nil
}

// Name is the path the module was read from.
func (m *Module) Name() string {
	return m.name
}

// LinkBitcodeFile parses path and merges it into m. The parsed module is
// consumed by the link.
func (m *Module) LinkBitcodeFile(path string) error {
	src, err := llvm.ParseBitcodeFile(path)
	if err != nil {
		return &diag.ModuleLinkError{Input: path, Err: err}
	}
	if err := llvm.LinkModules(m.mod, src); err != nil {
		return &diag.ModuleLinkError{Input: path, Err: err}
	}
	glog.V(5).Infof("linked %s into %s", path, m.name)
	return nil
}

// EmbedLinkerOptions records each option group under llvm.linker.options, so
// that whoever links the produced object picks them up.
func (m *Module) EmbedLinkerOptions(options [][]string) {
	ctx := m.mod.Context()
	for _, group := range options {
		mds := make([]llvm.Metadata, 0, len(group))
		for _, opt := range group {
			mds = append(mds, ctx.MDString(opt))
		}
		m.mod.AddNamedMetadataOperand("llvm.linker.options", ctx.MDNode(mds))
	}
}

// WriteBitcodeToFile serializes m to path.
func (m *Module) WriteBitcodeToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	if err := llvm.WriteBitcodeToFile(m.mod, f); err != nil {
		return errors.Wrapf(err, "writing bitcode to %s", path)
	}
	return nil
}

// Dispose releases the module. m must not be used afterwards.
func (m *Module) Dispose() {
	m.mod.Dispose()
}
