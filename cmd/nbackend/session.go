package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	irgen "github.com/timmyyuan/native-backend/ir-generator"
	"github.com/timmyyuan/native-backend/linker"
	"github.com/timmyyuan/native-backend/producer"
	"github.com/timmyyuan/native-backend/profile"
	"github.com/timmyyuan/native-backend/target"
)

// Session is the on-disk description of one build.
type Session struct {
	Target  string `yaml:"target"`
	Produce string `yaml:"produce"`
	Output  string `yaml:"output"`
	// Module is the bitcode of the front end.
	Module string `yaml:"module"`
	// Toolchains is the directory holding the toolchains named in the
	// profiles.
	Toolchains string `yaml:"toolchains"`
	// WorkDir keeps intermediate files there instead of a temporary
	// directory.
	WorkDir string `yaml:"work_dir,omitempty"`

	Optimize        bool `yaml:"optimize"`
	Debug           bool `yaml:"debug"`
	StaticFramework bool `yaml:"static_framework"`
	NoMain          bool `yaml:"no_main"`

	ModuleName     string `yaml:"module_name,omitempty"`
	LibraryVersion string `yaml:"library_version,omitempty"`

	NativeLibraries        []string            `yaml:"native_libraries"`
	DefaultNativeLibraries []string            `yaml:"default_native_libraries"`
	AdditionalBitcode      []string            `yaml:"additional_bitcode"`
	BitcodeDependencies    []bitcodeDependency `yaml:"bitcode_dependencies"`
	NativeDependencies     []nativeDependency  `yaml:"native_dependencies"`
	StubsDatabase          string              `yaml:"stubs_database,omitempty"`
	CAdapter               string              `yaml:"c_adapter,omitempty"`
	LinkerArgs             []string            `yaml:"linker_args"`
	ExportedSymbols        []string            `yaml:"exported_symbols"`

	BitcodeEmbedding producer.BitcodeEmbedding `yaml:"bitcode_embedding"`

	TimePasses    bool `yaml:"time_passes"`
	VerbosePasses bool `yaml:"verbose_passes"`
	DumpIR        bool `yaml:"dump_ir"`

	// dir is the directory of the session file; relative paths start there.
	dir string
}

type bitcodeDependency struct {
	Name    string   `yaml:"name"`
	Bitcode []string `yaml:"bitcode"`
}

type nativeDependency struct {
	Name             string   `yaml:"name"`
	IncludedBinaries []string `yaml:"included_binaries"`
	LinkerOpts       []string `yaml:"linker_opts"`
}

// LoadSession reads a session file.
func LoadSession(path string) (*Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading session %s", path)
	}

	s := &Session{}
	if err := yaml.UnmarshalStrict(b, s); err != nil {
		return nil, errors.Wrapf(err, "parsing session %s", path)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}
	s.dir = dir
	return s, nil
}

func (s *Session) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.dir, p)
}

func (s *Session) paths(ps []string) []string {
	var result []string
	for _, p := range ps {
		result = append(result, s.path(p))
	}
	return result
}

// Config resolves the session against the profiles into a producer
// configuration.
func (s *Session) Config(profiles *profile.File) (producer.Config, error) {
	t, err := target.Lookup(s.Target)
	if err != nil {
		return producer.Config{}, err
	}
	produce, err := linker.ParseProduceKind(s.Produce)
	if err != nil {
		return producer.Config{}, err
	}
	p, err := profiles.Select(t, s.path(s.Toolchains))
	if err != nil {
		return producer.Config{}, err
	}

	cfg := producer.Config{
		Target:                 t,
		Profile:                p,
		Produce:                produce,
		Mode:                   profile.ResolveMode(s.Optimize, s.Debug),
		Output:                 s.path(s.Output),
		StaticFramework:        s.StaticFramework,
		NoMain:                 s.NoMain,
		ModuleName:             s.ModuleName,
		LibraryVersion:         s.LibraryVersion,
		NativeLibraries:        s.paths(s.NativeLibraries),
		DefaultNativeLibraries: s.paths(s.DefaultNativeLibraries),
		AdditionalBitcode:      s.paths(s.AdditionalBitcode),
		LinkerArgs:             s.LinkerArgs,
		ExportedSymbols:        s.ExportedSymbols,
		BitcodeEmbedding:       s.BitcodeEmbedding,
		TimePasses:             s.TimePasses,
		VerbosePasses:          s.VerbosePasses,
		DumpIR:                 s.DumpIR,
	}
	for _, dep := range s.BitcodeDependencies {
		cfg.BitcodeDependencies = append(cfg.BitcodeDependencies, producer.BitcodeDependency{
			Name:         dep.Name,
			BitcodePaths: s.paths(dep.Bitcode),
		})
	}
	for _, dep := range s.NativeDependencies {
		cfg.NativeDependencies = append(cfg.NativeDependencies, linker.Dependency{
			Name:             dep.Name,
			IncludedBinaries: s.paths(dep.IncludedBinaries),
			LinkerOpts:       dep.LinkerOpts,
		})
	}

	if s.StubsDatabase != "" {
		db := irgen.NewCompilerDataBase(nil)
		if err := db.Load(s.path(s.StubsDatabase)); err != nil {
			return producer.Config{}, err
		}
		cfg.Stubs = db.Commands
	}
	return cfg, nil
}
