// Package producer runs one build session: it assembles the session module,
// optimizes it where the platform needs that in process, and drives the
// backend and the linker to the requested artifact.
package producer

import (
	"os"

	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/timmyyuan/native-backend/backend"
	"github.com/timmyyuan/native-backend/command"
	"github.com/timmyyuan/native-backend/diag"
	irgen "github.com/timmyyuan/native-backend/ir-generator"
	"github.com/timmyyuan/native-backend/linker"
	"github.com/timmyyuan/native-backend/magic"
	"github.com/timmyyuan/native-backend/optimizer"
	"github.com/timmyyuan/native-backend/profile"
	"github.com/timmyyuan/native-backend/target"
	"github.com/timmyyuan/native-backend/tempfiles"
)

// Module is the session's bitcode module as handed over by the front end.
type Module interface {
	LinkBitcodeFile(path string) error
	EmbedLinkerOptions(options [][]string)
	Optimize(plan *optimizer.Plan) error
	WriteBitcodeToFile(path string) error
}

// CAdapter generates the C adapter of a library module.
type CAdapter interface {
	WriteSource(path string) error
}

// BitcodeDependency is a library whose bitcode may be merged into the module.
type BitcodeDependency struct {
	Name string
	// BitcodePaths may list non-bitcode files; those are skipped.
	BitcodePaths []string
}

// BitcodeEmbedding are the options that embed bitcode into the output.
type BitcodeEmbedding struct {
	Compiler []string `yaml:"compiler"`
	Linker   []string `yaml:"linker"`
}

// Config is one build session.
type Config struct {
	Target  target.Target
	Profile profile.Profile
	Produce linker.ProduceKind
	Mode    profile.Mode
	Output  string

	StaticFramework bool
	NoMain          bool

	// ModuleName and LibraryVersion describe library output.
	ModuleName     string
	LibraryVersion string

	NativeLibraries        []string
	DefaultNativeLibraries []string
	// AdditionalBitcode are further modules produced by the front end.
	AdditionalBitcode   []string
	BitcodeDependencies []BitcodeDependency
	NativeDependencies  []linker.Dependency
	// Stubs compile the C stubs of the module.
	Stubs []*irgen.CompileCommand

	LinkerArgs       []string
	ExportedSymbols  []string
	BitcodeEmbedding BitcodeEmbedding

	Coverage      bool
	TimePasses    bool
	VerbosePasses bool
	DumpIR        bool
	// Verbose prints stage progress to stdout.
	Verbose bool
}

// Deps are the collaborators of a session.
type Deps struct {
	Runner   command.Runner
	Temps    *tempfiles.Files
	Module   Module
	CAdapter CAdapter
	Packager LibraryPackager
	// LatePasses runs the coverage passes over a bitcode file. It is used
	// when coverage is on and the platform optimizes with an external opt.
	LatePasses func(bitcode string) error
}

// Result is the produced artifact.
type Result struct {
	Produce linker.ProduceKind
	Path    string
	// DebugSymbols is set for native binaries.
	DebugSymbols string
}

type Producer struct {
	cfg  Config
	deps Deps

	plan       *optimizer.Plan
	versioning LibraryVersioning
}

func New(cfg Config, deps Deps) *Producer {
	return &Producer{cfg: cfg, deps: deps}
}

func (p *Producer) stage(format string, args ...interface{}) {
	if p.cfg.Verbose {
		color.Cyan(format, args...)
	}
	glog.V(5).Infof(format, args...)
}

// Validate rejects a session that cannot be built. No tool runs before it
// succeeds.
func (p *Producer) Validate() error {
	cfg := p.cfg
	if cfg.Profile == nil {
		return diag.Configurationf("no platform profile for %s", cfg.Target)
	}
	if want := profile.KindFor(cfg.Target.Family); cfg.Profile.Kind() != want {
		return diag.Configurationf("%s profile cannot build %s", cfg.Profile.Kind(), cfg.Target)
	}
	if base := cfg.Profile.Base(); base.Target.Name != cfg.Target.Name {
		return diag.Configurationf("profile of %s cannot build %s", base.Target, cfg.Target)
	}
	if cfg.Produce.String() == "unknown" {
		return diag.Configurationf("unknown produce kind %d", cfg.Produce)
	}
	if cfg.Output == "" {
		return diag.Configurationf("no output path")
	}

	switch {
	case cfg.Produce.IsNativeBinary():
		if cfg.Target.Family.IsApple() {
			plan, err := optimizer.NewPlan(optimizer.Config{
				Target:   cfg.Target,
				Mode:     cfg.Mode,
				Exported: cfg.ExportedSymbols,
				Coverage: cfg.Coverage,
			})
			if err != nil {
				return err
			}
			p.plan = plan
		}
		if err := linker.New(cfg.Profile, p.deps.Runner).Validate(p.linkConfig()); err != nil {
			return err
		}
		if needsCAdapter(cfg.Produce) && p.deps.CAdapter == nil {
			return diag.Configurationf("%s output needs a C adapter", cfg.Produce)
		}
	case cfg.Produce == linker.Library:
		if p.deps.Packager == nil {
			return diag.Configurationf("library output needs a library packager")
		}
		versioning, err := NewLibraryVersioning(cfg.LibraryVersion)
		if err != nil {
			return err
		}
		p.versioning = versioning
	}
	return nil
}

func needsCAdapter(k linker.ProduceKind) bool {
	return k == linker.DynamicLibrary || k == linker.StaticLibrary
}

// Produce builds the configured artifact.
func (p *Producer) Produce() (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.cfg.Produce {
	case linker.Library:
		return p.produceLibrary()
	case linker.Bitcode:
		p.stage("writing bitcode %s", p.cfg.Output)
		if err := p.deps.Module.WriteBitcodeToFile(p.cfg.Output); err != nil {
			return nil, err
		}
		return &Result{Produce: linker.Bitcode, Path: p.cfg.Output}, nil
	}
	return p.produceNativeBinary()
}

func (p *Producer) produceNativeBinary() (*Result, error) {
	cfg := p.cfg
	module := p.deps.Module

	generated, err := p.compileGenerated()
	if err != nil {
		return nil, err
	}

	var libraries []string
	libraries = append(libraries, cfg.NativeLibraries...)
	libraries = append(libraries, cfg.DefaultNativeLibraries...)
	libraries = append(libraries, generated...)
	for _, library := range libraries {
		if err := module.LinkBitcodeFile(library); err != nil {
			return nil, err
		}
	}

	// Only the in-process optimizer sees a whole program; otherwise the
	// backend receives the remaining bitcode next to the module.
	var auxiliary []string
	for _, path := range p.extraBitcode() {
		if p.plan == nil {
			auxiliary = append(auxiliary, path)
			continue
		}
		if err := module.LinkBitcodeFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.Produce == linker.Framework && cfg.StaticFramework {
		options := FindEmbeddableOptions(cfg.Profile.Base().Linker.SystemLibs)
		for _, dep := range cfg.NativeDependencies {
			options = append(options, FindEmbeddableOptions(dep.LinkerOpts)...)
		}
		module.EmbedLinkerOptions(options)
	}

	if p.plan != nil {
		p.stage("optimizing for %s (%s)", cfg.Target, cfg.Mode)
		if err := module.Optimize(p.plan); err != nil {
			return nil, errors.Wrap(err, "optimizing module")
		}
	}

	bitcode := p.deps.Temps.NativeBinaryBitcode()
	if err := module.WriteBitcodeToFile(bitcode); err != nil {
		return nil, err
	}

	p.stage("compiling for %s", cfg.Target)
	opts := backend.Options{
		Mode:             cfg.Mode,
		TimePasses:       cfg.TimePasses,
		VerbosePasses:    cfg.VerbosePasses,
		ExportedSymbols:  cfg.ExportedSymbols,
		BitcodeEmbedding: cfg.BitcodeEmbedding.Compiler,
		DumpIR:           cfg.DumpIR,
	}
	if cfg.Coverage {
		opts.LatePasses = p.deps.LatePasses
	}
	object, err := backend.New(cfg.Profile, backend.Env{
		Runner:  p.deps.Runner,
		Temps:   p.deps.Temps,
		Options: opts,
	}).Compile(backend.Units{Primary: bitcode, Auxiliary: auxiliary})
	if err != nil {
		return nil, err
	}

	p.stage("linking %s", cfg.Output)
	artifact, err := linker.New(cfg.Profile, p.deps.Runner).Link([]string{object}, p.linkConfig())
	if err != nil {
		return nil, err
	}
	return &Result{Produce: cfg.Produce, Path: artifact.Path, DebugSymbols: artifact.DebugSymbols}, nil
}

func (p *Producer) linkConfig() linker.Config {
	return linker.Config{
		Produce:          p.cfg.Produce,
		StaticFramework:  p.cfg.StaticFramework,
		Mode:             p.cfg.Mode,
		Output:           p.cfg.Output,
		NoMain:           p.cfg.NoMain,
		Args:             p.cfg.LinkerArgs,
		BitcodeEmbedding: p.cfg.BitcodeEmbedding.Linker,
		Dependencies:     p.cfg.NativeDependencies,
	}
}

// extraBitcode lists additional modules and the bitcode entries of bitcode
// dependencies.
func (p *Producer) extraBitcode() []string {
	paths := append([]string{}, p.cfg.AdditionalBitcode...)
	for _, dep := range p.cfg.BitcodeDependencies {
		for _, path := range dep.BitcodePaths {
			if !magic.IsBitcode(path) {
				glog.V(5).Infof("skipping %s of %s: not bitcode", path, dep.Name)
				continue
			}
			paths = append(paths, path)
		}
	}
	return paths
}

// compileGenerated compiles the C stubs and, for C libraries, the C adapter
// into bitcode.
func (p *Producer) compileGenerated() ([]string, error) {
	cfg := p.cfg
	base := cfg.Profile.Base()

	db := irgen.NewCompilerDataBase(p.deps.Runner)
	db.Verbose = cfg.Verbose
	for _, stub := range cfg.Stubs {
		if err := db.Add(stub); err != nil {
			return nil, err
		}
	}

	if needsCAdapter(cfg.Produce) {
		source := p.deps.Temps.CAdapterSource()
		if err := p.deps.CAdapter.WriteSource(source); err != nil {
			return nil, errors.Wrap(err, "generating C adapter")
		}
		adapter := irgen.NewCompileCommand(base.CXXCompiler(), source, p.deps.Temps.CAdapterBitcode(), "-std=c++14")
		if err := db.Add(adapter); err != nil {
			return nil, err
		}
	}

	if len(db.Commands) == 0 {
		return nil, nil
	}
	db.EmitLLVM(base.CXXCompiler(), irgen.EmitOptions{
		Triple:  cfg.Target.Triple,
		Sysroot: base.Sysroot,
		Mode:    cfg.Mode,
	})
	if cfg.DumpIR {
		if err := p.dumpCompileCommands(db); err != nil {
			return nil, err
		}
	}
	return db.Run()
}

// dumpCompileCommands writes the rewritten commands next to the other
// intermediate files.
func (p *Producer) dumpCompileCommands(db *irgen.CompilerDatabase) error {
	dump, err := db.Dump()
	if err != nil {
		return err
	}
	path := p.deps.Temps.Create("compile_commands", ".json")
	if err := os.WriteFile(path, []byte(dump), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	glog.V(3).Infof("compile commands written to %s", path)
	return nil
}

func (p *Producer) produceLibrary() (*Result, error) {
	cfg := p.cfg
	name := cfg.ModuleName
	if name == "" {
		name = "library"
	}

	bitcode := p.deps.Temps.Create(name, ".bc")
	if err := p.deps.Module.WriteBitcodeToFile(bitcode); err != nil {
		return nil, err
	}

	var dependencies []string
	for _, dep := range cfg.BitcodeDependencies {
		dependencies = append(dependencies, dep.Name)
	}

	p.stage("packaging %s", name)
	path, err := p.deps.Packager.Package(LibraryRequest{
		Name:             name,
		Output:           cfg.Output,
		Target:           cfg.Target,
		Bitcode:          bitcode,
		NativeLibraries:  cfg.NativeLibraries,
		IncludedBinaries: includedBinaries(cfg.NativeDependencies),
		Dependencies:     dependencies,
		Versioning:       p.versioning,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "packaging %s", name)
	}
	return &Result{Produce: linker.Library, Path: path}, nil
}
