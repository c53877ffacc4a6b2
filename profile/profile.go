// Package profile holds the toolchain and flag bundles of each target family.
//
// A session selects exactly one Profile from its target. Profile is a closed
// sum of four variants; code that needs to branch on the variant implements
// Visitor, so that adding a variant fails to compile at every such site.
package profile

import (
	"path/filepath"

	"github.com/timmyyuan/native-backend/diag"
	"github.com/timmyyuan/native-backend/target"
)

// Kind names a profile variant.
type Kind int

const (
	AppleKind Kind = iota
	WasmKind
	ZephyrKind
	GenericLtoKind
)

func (k Kind) String() string {
	switch k {
	case AppleKind:
		return "apple"
	case WasmKind:
		return "wasm"
	case ZephyrKind:
		return "zephyr"
	case GenericLtoKind:
		return "lto"
	}
	return "unknown"
}

// KindFor returns the variant that serves a target family.
func KindFor(f target.Family) Kind {
	switch f {
	case target.OSX, target.IOS:
		return AppleKind
	case target.Wasm:
		return WasmKind
	case target.Zephyr:
		return ZephyrKind
	}
	return GenericLtoKind
}

// Linker describes how the final link is run on a platform.
type Linker struct {
	// Tool is the linker program, relative to the target toolchain's bin
	// directory.
	Tool string `toml:"tool"`
	// CompilerDriver is set when Tool is a compiler driver (clang++) rather
	// than the raw linker, so -Wl, arguments are passed through untouched.
	CompilerDriver bool `toml:"compiler_driver"`
	// Archiver builds static libraries.
	Archiver string    `toml:"archiver"`
	Flags    ModeFlags `toml:"flags"`
	// EntrySelector aliases the runtime entry symbol to the platform's one.
	EntrySelector  []string `toml:"entry_selector"`
	SystemLibs     []string `toml:"system_libraries"`
	DynamicFlags   []string `toml:"dynamic_flags"`
	StaticLibFlags []string `toml:"static_library_flags"`
}

// Common is shared by every variant.
type Common struct {
	Target target.Target
	// TargetToolchain is the root of the native toolchain (clang, ld).
	TargetToolchain string
	// LLVMHome is the root of the host LLVM distribution (llvm-link, opt,
	// llc, llvm-lto, wasm-ld).
	LLVMHome string
	Sysroot  string
	Linker   Linker
}

// TargetTool is the absolute path of a target toolchain program.
func (c *Common) TargetTool(name string) string {
	if c.Target.Family.IsApple() {
		return filepath.Join(c.TargetToolchain, "usr", "bin", name)
	}
	return filepath.Join(c.TargetToolchain, "bin", name)
}

// HostLLVMTool is the absolute path of a host LLVM program.
func (c *Common) HostLLVMTool(name string) string {
	return filepath.Join(c.LLVMHome, "bin", name)
}

// CXXCompiler is the clang++ used to compile C adapter and stub sources to
// bitcode: the Xcode one on Apple targets, the host LLVM one elsewhere.
func (c *Common) CXXCompiler() string {
	if c.Target.Family.IsApple() {
		return c.TargetTool("clang++")
	}
	return c.HostLLVMTool("clang++")
}

// Profile is implemented by *Apple, *Wasm, *Zephyr and *GenericLto only.
type Profile interface {
	Kind() Kind
	Base() *Common
	sealed()
}

// Apple compiles bitcode with the Xcode clang and links with ld64.
type Apple struct {
	Common
	Clang        ModeFlags
	ClangDynamic []string
	// Arch is the -arch value for ld.
	Arch string
	// MinVersionFlag is -macosx_version_min or -ios_version_min.
	MinVersionFlag string
	MinVersion     string
}

// Wasm runs the four-stage llvm-link, opt, llc, wasm-ld pipeline.
type Wasm struct {
	Common
	Opt ModeFlags
	Llc ModeFlags
	Lld []string
}

// Zephyr targets embedded boards through an external codegen with section
// splitting.
type Zephyr struct {
	Common
	Board string
}

// GenericLto hands all bitcode to a single llvm-lto invocation.
type GenericLto struct {
	Common
	Lto        ModeFlags
	LtoDynamic []string
}

func (p *Apple) Kind() Kind      { return AppleKind }
func (p *Wasm) Kind() Kind       { return WasmKind }
func (p *Zephyr) Kind() Kind     { return ZephyrKind }
func (p *GenericLto) Kind() Kind { return GenericLtoKind }

func (p *Apple) Base() *Common      { return &p.Common }
func (p *Wasm) Base() *Common       { return &p.Common }
func (p *Zephyr) Base() *Common     { return &p.Common }
func (p *GenericLto) Base() *Common { return &p.Common }

func (*Apple) sealed()      {}
func (*Wasm) sealed()       {}
func (*Zephyr) sealed()     {}
func (*GenericLto) sealed() {}

// Visitor has one method per variant.
type Visitor[T any] interface {
	Apple(p *Apple) (T, error)
	Wasm(p *Wasm) (T, error)
	Zephyr(p *Zephyr) (T, error)
	GenericLto(p *GenericLto) (T, error)
}

// Visit dispatches p to the matching method of v.
func Visit[T any](p Profile, v Visitor[T]) (T, error) {
	switch p := p.(type) {
	case *Apple:
		return v.Apple(p)
	case *Wasm:
		return v.Wasm(p)
	case *Zephyr:
		return v.Zephyr(p)
	case *GenericLto:
		return v.GenericLto(p)
	}
	var zero T
	return zero, diag.Configurationf("unsupported profile kind %T", p)
}
