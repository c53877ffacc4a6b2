package profile

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/timmyyuan/native-backend/diag"
	"github.com/timmyyuan/native-backend/target"
)

//go:embed profiles.toml
var defaultProfiles []byte

// File is a parsed profiles file: one table per target name.
type File struct {
	Targets map[string]entry `toml:"targets"`
}

// entry is the on-disk form of one profile; which sections apply depends on
// the variant.
type entry struct {
	Kind      string `toml:"kind"`
	Toolchain string `toml:"toolchain"`
	LLVMHome  string `toml:"llvm_home"`
	Sysroot   string `toml:"sysroot"`
	Linker    Linker `toml:"linker"`

	// apple
	Clang          ModeFlags `toml:"clang"`
	ClangDynamic   []string  `toml:"clang_dynamic"`
	Arch           string    `toml:"arch"`
	MinVersionFlag string    `toml:"min_version_flag"`
	MinVersion     string    `toml:"min_version"`

	// wasm
	Opt ModeFlags `toml:"opt"`
	Llc ModeFlags `toml:"llc"`
	Lld []string  `toml:"lld"`

	// zephyr
	Board string `toml:"board"`

	// lto
	Lto        ModeFlags `toml:"lto"`
	LtoDynamic []string  `toml:"lto_dynamic"`
}

// Parse decodes a profiles file.
func Parse(data []byte) (*File, error) {
	f := &File{}
	if err := toml.Unmarshal(data, f); err != nil {
		return nil, errors.Wrap(err, "parsing profiles")
	}
	return f, nil
}

// Defaults returns the built-in profiles.
func Defaults() *File {
	f, err := Parse(defaultProfiles)
	if err != nil {
		panic(err)
	}
	return f
}

// LoadFile reads a profiles file and layers it over the built-in profiles:
// a target present in the file replaces the built-in one entirely.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}

	f := Defaults()
	for name, e := range override.Targets {
		f.Targets[name] = e
	}
	return f, nil
}

// Select builds the profile for t. Relative toolchain paths are resolved
// against root, the directory holding the downloaded toolchains.
func (f *File) Select(t target.Target, root string) (Profile, error) {
	e, ok := f.Targets[t.Name]
	if !ok {
		return nil, diag.Configurationf("no profile for target %s", t.Name)
	}

	want := KindFor(t.Family)
	if e.Kind != "" && e.Kind != want.String() {
		return nil, diag.Configurationf("profile for %s is %q, but %s targets need %q", t.Name, e.Kind, t.Family, want)
	}

	common := Common{
		Target:          t,
		TargetToolchain: absolute(root, e.Toolchain),
		LLVMHome:        absolute(root, e.LLVMHome),
		Sysroot:         absolute(root, e.Sysroot),
		Linker:          e.Linker,
	}

	switch want {
	case AppleKind:
		return &Apple{
			Common:         common,
			Clang:          e.Clang,
			ClangDynamic:   e.ClangDynamic,
			Arch:           e.Arch,
			MinVersionFlag: e.MinVersionFlag,
			MinVersion:     e.MinVersion,
		}, nil
	case WasmKind:
		return &Wasm{Common: common, Opt: e.Opt, Llc: e.Llc, Lld: e.Lld}, nil
	case ZephyrKind:
		return &Zephyr{Common: common, Board: e.Board}, nil
	case GenericLtoKind:
		return &GenericLto{Common: common, Lto: e.Lto, LtoDynamic: e.LtoDynamic}, nil
	}
	return nil, diag.Configurationf("unsupported profile kind %s", want)
}

func absolute(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
