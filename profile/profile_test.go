package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmyyuan/native-backend/diag"
	"github.com/timmyyuan/native-backend/target"
)

func TestResolveModePriority(t *testing.T) {
	assert.Equal(t, Optimize, ResolveMode(true, true))
	assert.Equal(t, Optimize, ResolveMode(true, false))
	assert.Equal(t, Debug, ResolveMode(false, true))
	assert.Equal(t, NoOpt, ResolveMode(false, false))
}

func TestComposeNeverMixesModes(t *testing.T) {
	flags := ModeFlags{
		Base:     []string{"-base", ""},
		Optimize: []string{"-O3"},
		Debug:    []string{"-O0", "-g"},
		NoOpt:    []string{"-O1"},
	}

	got := flags.Compose(ResolveMode(true, true), "-time-passes")
	assert.Equal(t, []string{"-base", "-O3", "-time-passes"}, got)
	assert.NotContains(t, got, "-g")

	assert.Equal(t, []string{"-base", "-O0", "-g"}, flags.Compose(ResolveMode(false, true)))
	assert.Equal(t, []string{"-base", "-O1"}, flags.Compose(ResolveMode(false, false)))
}

type kindNames struct{}

func (kindNames) Apple(p *Apple) (string, error)           { return "apple:" + p.Arch, nil }
func (kindNames) Wasm(p *Wasm) (string, error)             { return "wasm", nil }
func (kindNames) Zephyr(p *Zephyr) (string, error)         { return "zephyr:" + p.Board, nil }
func (kindNames) GenericLto(p *GenericLto) (string, error) { return "lto", nil }

func TestDefaultsSelectEveryFamily(t *testing.T) {
	defaults := Defaults()
	expect := map[string]string{
		"linux_x64":            "lto",
		"linux_arm32_hfp":      "lto",
		"mingw_x86":            "lto",
		"macos_x64":            "apple:x86_64",
		"ios_arm64":            "apple:arm64",
		"ios_arm32":            "apple:armv7",
		"wasm32":               "wasm",
		"zephyr_stm32f4_disco": "zephyr:stm32f4_disco",
	}

	for name, want := range expect {
		tgt, err := target.Lookup(name)
		require.NoError(t, err)

		p, err := defaults.Select(tgt, "/deps")
		require.NoError(t, err, name)
		assert.Equal(t, KindFor(tgt.Family), p.Kind(), name)

		got, err := Visit[string](p, kindNames{})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.True(t, filepath.IsAbs(p.Base().LLVMHome), name)
	}
}

func TestToolPaths(t *testing.T) {
	macos, _ := target.Lookup("macos_x64")
	apple := &Apple{Common: Common{Target: macos, TargetToolchain: "/xcode", LLVMHome: "/llvm"}}
	assert.Equal(t, "/xcode/usr/bin/clang++", apple.TargetTool("clang++"))
	assert.Equal(t, "/llvm/bin/llvm-link", apple.HostLLVMTool("llvm-link"))

	linux, _ := target.Lookup("linux_x64")
	lto := &GenericLto{Common: Common{Target: linux, TargetToolchain: "/gcc", LLVMHome: "/llvm"}}
	assert.Equal(t, "/gcc/bin/clang++", lto.TargetTool("clang++"))
	assert.Equal(t, "/llvm/bin/clang++", lto.CXXCompiler())
	assert.Equal(t, "/xcode/usr/bin/clang++", apple.CXXCompiler())
}

func TestSelectRejectsMismatchedKind(t *testing.T) {
	f, err := Parse([]byte(`
[targets.linux_x64]
kind = "apple"
toolchain = "/tc"
`))
	require.NoError(t, err)

	linux, _ := target.Lookup("linux_x64")
	_, err = f.Select(linux, "/deps")
	assert.True(t, diag.IsConfiguration(err))

	wasm, _ := target.Lookup("wasm32")
	_, err = f.Select(wasm, "/deps")
	assert.True(t, diag.IsConfiguration(err))
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[targets.linux_x64]
toolchain = "/opt/clang"
llvm_home = "/opt/llvm"

  [targets.linux_x64.lto]
  optimize = ["-O2"]
`), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)

	linux, _ := target.Lookup("linux_x64")
	p, err := f.Select(linux, "/deps")
	require.NoError(t, err)

	lto := p.(*GenericLto)
	assert.Equal(t, "/opt/llvm", lto.LLVMHome)
	assert.Equal(t, []string{"-O2"}, lto.Lto.For(Optimize))

	// targets not mentioned keep their built-in profile
	macos, _ := target.Lookup("macos_x64")
	_, err = f.Select(macos, "/deps")
	assert.NoError(t, err)
}
