// Package backend turns the session's bitcode into a native object file (or,
// for WebAssembly, a linked wasm module) with the toolchain of the selected
// platform profile.
package backend

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/timmyyuan/native-backend/command"
	irgen "github.com/timmyyuan/native-backend/ir-generator"
	"github.com/timmyyuan/native-backend/profile"
	"github.com/timmyyuan/native-backend/target"
	"github.com/timmyyuan/native-backend/tempfiles"
)

// Options are the per-session knobs every pipeline reads.
type Options struct {
	Mode profile.Mode

	TimePasses    bool
	VerbosePasses bool

	// ExportedSymbols survive link-time optimization, unmangled.
	ExportedSymbols []string
	// BitcodeEmbedding is passed to the Apple compiler.
	BitcodeEmbedding []string

	// DumpIR writes a textual copy of every intermediate bitcode file.
	DumpIR bool
	// LatePasses, if set, runs over the optimized bitcode of pipelines that
	// optimize with an external opt.
	LatePasses func(bitcode string) error
}

// diagnostics are the pass statistics flags requested for this session.
func (o Options) diagnostics() []string {
	var flags []string
	if o.TimePasses {
		flags = append(flags, "-time-passes")
	}
	if o.VerbosePasses {
		flags = append(flags, "-debug-pass=Structure")
	}
	return flags
}

// Env is what a pipeline needs from its session.
type Env struct {
	Runner  command.Runner
	Temps   *tempfiles.Files
	Options Options
}

// Units are the bitcode files to compile. Primary is the session module;
// Auxiliary are further units that were not merged into it.
type Units struct {
	Primary   string
	Auxiliary []string
}

// All lists the primary unit followed by the auxiliary ones.
func (u Units) All() []string {
	return append([]string{u.Primary}, u.Auxiliary...)
}

// Pipeline compiles units for one platform profile.
type Pipeline struct {
	profile profile.Profile
	env     Env
}

func New(p profile.Profile, env Env) *Pipeline {
	return &Pipeline{profile: p, env: env}
}

// Compile runs the profile's pipeline and returns the path of the produced
// object file or wasm module.
func (p *Pipeline) Compile(units Units) (string, error) {
	if units.Primary == "" {
		return "", errors.New("no bitcode to compile")
	}
	glog.V(5).Infof("backend: compiling %d unit(s) for %s", len(units.All()), p.profile.Base().Target)
	return profile.Visit[string](p.profile, &compiler{env: p.env, units: units})
}

// compiler is the per-call state of Compile, one method per profile variant.
type compiler struct {
	env   Env
	units Units
}

func (c *compiler) mode() profile.Mode {
	return c.env.Options.Mode
}

func (c *compiler) runStage(stage string, cmd *command.Command) error {
	glog.V(5).Infof("backend: %s stage", stage)
	if _, err := c.env.Runner.Run(cmd); err != nil {
		return errors.Wrapf(err, "%s stage", stage)
	}
	return nil
}

// llvmLink merges every unit into one bitcode file.
func (c *compiler) llvmLink(p *profile.Common, name string) (string, error) {
	output := c.env.Temps.Create(name, ".bc")
	link := irgen.NewLLVMLinker(p.HostLLVMTool("llvm-link"), output, c.units.All()...)
	if err := c.runStage("link", link.Command()); err != nil {
		return "", err
	}
	c.dumpIR(p, output)
	return output, nil
}

// opt runs the external optimizer and the late passes after it.
func (c *compiler) opt(p *profile.Common, input string, flags []string) (string, error) {
	output := c.env.Temps.Create("optimized", ".bc")
	opt := irgen.NewOpt(p.HostLLVMTool("opt"), input, output, flags...)
	if err := c.runStage("opt", opt.Command()); err != nil {
		return "", err
	}
	if late := c.env.Options.LatePasses; late != nil {
		if err := late(output); err != nil {
			return "", errors.Wrap(err, "late passes")
		}
	}
	c.dumpIR(p, output)
	return output, nil
}

func (c *compiler) llc(p *profile.Common, input, name string, flags []string) (string, error) {
	output := c.env.Temps.Create(name, ".o")
	llc := irgen.NewLlc(p.HostLLVMTool("llc"), input, output, flags...)
	if err := c.runStage("llc", llc.Command()); err != nil {
		return "", err
	}
	return output, nil
}

func (c *compiler) dumpIR(p *profile.Common, bitcode string) {
	if !c.env.Options.DumpIR {
		return
	}
	dis := irgen.NewLLVMDis(p.HostLLVMTool("llvm-dis"), bitcode, bitcode[:len(bitcode)-len(".bc")]+".ll")
	if !dis.NeedRun() {
		glog.V(3).Infof("llvm-dis not available, not dumping %s", bitcode)
		return
	}
	if _, err := c.env.Runner.Run(dis.Command()); err != nil {
		glog.Warningf("dumping %s: %v", bitcode, err)
	}
}

// Apple links with llvm-link and compiles with the Xcode clang. The module
// has already been optimized in process, so no opt runs here. Objects are
// always position independent, whatever the final link produces.
func (c *compiler) Apple(p *profile.Apple) (string, error) {
	combined, err := c.llvmLink(&p.Common, "combined")
	if err != nil {
		return "", err
	}

	output := c.env.Temps.Create("result", ".o")
	args := profile.NonEmpty(
		p.Clang.Base,
		[]string{"-triple", p.Target.Triple},
		p.Clang.For(c.mode()),
		c.env.Options.BitcodeEmbedding,
		p.ClangDynamic,
		[]string{combined, "-o", output},
	)
	if err := c.runStage("clang", command.New(p.TargetTool("clang++"), args...)); err != nil {
		return "", err
	}
	return output, nil
}

// Wasm is llvm-link, opt, llc and wasm-ld; the linked module is final.
func (c *compiler) Wasm(p *profile.Wasm) (string, error) {
	diagnostics := c.env.Options.diagnostics()

	linked, err := c.llvmLink(&p.Common, "linked")
	if err != nil {
		return "", err
	}
	optimized, err := c.opt(&p.Common, linked, p.Opt.Compose(c.mode(), diagnostics...))
	if err != nil {
		return "", err
	}
	compiled, err := c.llc(&p.Common, optimized, "compiled", p.Llc.Compose(c.mode(), diagnostics...))
	if err != nil {
		return "", err
	}

	output := c.env.Temps.Create("linked", ".wasm")
	args := profile.NonEmpty([]string{compiled, "-o", output}, p.Lld)
	if err := c.runStage("wasm-ld", command.New(p.HostLLVMTool("wasm-ld"), args...)); err != nil {
		return "", err
	}
	return output, nil
}

// Zephyr optimizes aggressively whatever the mode, then splits sections so
// the board linker can garbage collect them.
func (c *compiler) Zephyr(p *profile.Zephyr) (string, error) {
	diagnostics := c.env.Options.diagnostics()

	linked, err := c.llvmLink(&p.Common, "linked")
	if err != nil {
		return "", err
	}
	optimized, err := c.opt(&p.Common, linked,
		profile.NonEmpty([]string{"-O3", "-internalize", "-globaldce"}, diagnostics))
	if err != nil {
		return "", err
	}
	return c.llc(&p.Common, optimized, "result", profile.NonEmpty(
		[]string{"-mtriple=" + p.Target.Triple, "-function-sections", "-data-sections"},
		diagnostics,
	))
}

// GenericLto hands every unit to a single llvm-lto run.
func (c *compiler) GenericLto(p *profile.GenericLto) (string, error) {
	output := c.env.Temps.Create("combined", ".o")

	var exported []string
	for _, sym := range c.env.Options.ExportedSymbols {
		exported = append(exported, "-exported-symbol="+target.MangleSymbol(p.Target, sym))
	}

	args := profile.NonEmpty(
		[]string{"-o", output},
		p.Lto.Base,
		p.Lto.For(c.mode()),
		c.env.Options.diagnostics(),
		p.LtoDynamic,
		c.units.All(),
		exported,
	)
	if err := c.runStage("llvm-lto", command.New(p.HostLLVMTool("llvm-lto"), args...)); err != nil {
		return "", err
	}
	return output, nil
}
