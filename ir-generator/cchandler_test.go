package ir_generator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmyyuan/native-backend/command/commandtest"
	"github.com/timmyyuan/native-backend/profile"
)

func TestCompilerDatabase_EmitLLVM(t *testing.T) {
	stubsCase := `
[
  {
    "command": "gcc -Wp,-MMD,stubs/.confdata.o.d -Wall -O2 -std=gnu11 -c -o stubs/confdata.o stubs/confdata.c",
    "directory": "/home/build/module",
    "file": "/home/build/module/stubs/confdata.c"
  },
  {
    "arguments": ["cc", "-Wall", "-O3", "-c", "stubs/util.c"],
    "directory": "/home/build/module",
    "file": "stubs/util.c"
  }
]
`
	expect := []string{
		"clang -Wp,-MMD,stubs/.confdata.o.d -Wall -O0 -std=gnu11 -emit-llvm -target x86_64-unknown-linux-gnu -g -Xclang -disable-O0-optnone -Xclang -disable-llvm-passes -Wno-everything -c -o stubs/confdata.bc stubs/confdata.c",
		"clang -Wall -O0 -emit-llvm -target x86_64-unknown-linux-gnu -g -Xclang -disable-O0-optnone -Xclang -disable-llvm-passes -Wno-everything -c stubs/util.c -o stubs/util.bc",
	}

	d := &CompilerDatabase{}
	require.NoError(t, json.Unmarshal([]byte(stubsCase), &d.Commands))

	d.EmitLLVM("clang", EmitOptions{Triple: "x86_64-unknown-linux-gnu", Mode: profile.Debug})

	var result []string
	for _, c := range d.Commands {
		result = append(result, c.String())
	}
	assert.Equal(t, expect, result)

	tgt, err := d.Commands[1].GetTarget()
	require.NoError(t, err)
	assert.Equal(t, "/home/build/module/stubs/util.bc", tgt)
}

func TestEmitLLVMKeepsOptimizationOutsideDebug(t *testing.T) {
	d := &CompilerDatabase{}
	require.NoError(t, d.Add(NewCompileCommand("cc", "/src/api.cpp", "/tmp/api.o", "-O2")))

	d.EmitLLVM("clang++", EmitOptions{Triple: "arm64-apple-ios9.0", Sysroot: "/sdk", Mode: profile.Optimize})

	args := d.Commands[0].SplitArgs()
	assert.Equal(t, "clang++", args[0])
	assert.Contains(t, args, "-O2")
	assert.Contains(t, args, "--sysroot=/sdk")
	assert.NotContains(t, args, "-g")
	assert.Equal(t, []string{"-c", "-o", "/tmp/api.bc", "/src/api.cpp"}, args[len(args)-4:])
}

func TestEmitLLVMDropsConflictingFlags(t *testing.T) {
	d := &CompilerDatabase{}
	require.NoError(t, d.Add(NewCompileCommand("cc", "/src/stubs.c", "/tmp/stubs.o", "-flto=thin", "-O2", "-save-temps")))

	d.EmitLLVM("clang", EmitOptions{Triple: "x86_64-unknown-linux-gnu", Mode: profile.Optimize})

	args := d.Commands[0].SplitArgs()
	assert.NotContains(t, args, "-flto=thin")
	assert.NotContains(t, args, "-save-temps")
	assert.Contains(t, args, "-O2")
	assert.Equal(t, "/src", d.Commands[0].ToolCommand().Dir)
}

func TestLoadSkipsAssemblyAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	ccjson := filepath.Join(dir, "compile_commands.json")
	require.NoError(t, os.WriteFile(ccjson, []byte(`[
  {"directory": "/w", "command": "cc -c -o a.o a.c", "file": "a.c"},
  {"directory": "/w", "arguments": ["cc", "-c", "-o", "a.o", "a.c"], "file": "a.c"},
  {"directory": "/w", "command": "cc -c -o start.o start.S", "file": "start.S"},
  {"directory": "/w", "command": "cc -c b.c", "file": "b.c"}
]`), 0o644))

	d := NewCompilerDataBase(nil)
	require.NoError(t, d.Load(ccjson))
	require.Len(t, d.Commands, 2)
	assert.Equal(t, "a.c", d.Commands[0].GetFile())
	assert.Equal(t, "b.c", d.Commands[1].GetFile())
}

func TestLoadRejectsEmptyCommand(t *testing.T) {
	ccjson := filepath.Join(t.TempDir(), "compile_commands.json")
	require.NoError(t, os.WriteFile(ccjson, []byte(`[{"directory": "/w", "command": "  ", "file": "a.c"}]`), 0o644))

	err := NewCompilerDataBase(nil).Load(ccjson)
	assert.Error(t, err)
}

func TestRunIsSequentialAndStopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	rec := &commandtest.Recorder{}
	d := NewCompilerDataBase(rec)
	require.NoError(t, d.Add(NewCompileCommand("/tc/clang", filepath.Join(dir, "a.c"), filepath.Join(dir, "a.o"))))
	require.NoError(t, d.Add(NewCompileCommand("/tc/clang", filepath.Join(dir, "b.c"), filepath.Join(dir, "b.o"))))
	d.EmitLLVM("/tc/clang", EmitOptions{Triple: "wasm32-unknown-unknown"})

	outputs, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.bc"), filepath.Join(dir, "b.bc")}, outputs)
	assert.FileExists(t, outputs[0])
	assert.Equal(t, []string{"clang", "clang"}, rec.Tools())

	failing := &commandtest.Recorder{Fail: map[string]bool{"clang": true}, Stderr: "error: unknown type"}
	d.Runner = failing
	_, err = d.Run()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "compiling"))
	assert.Len(t, failing.Commands, 1)
}

func TestToolBuilders(t *testing.T) {
	link := NewLLVMLinker("/llvm/bin/llvm-link", "/tmp/linked.bc", "/a.bc", "/b.bc")
	assert.Equal(t, "/llvm/bin/llvm-link /a.bc /b.bc -o /tmp/linked.bc", link.Command().String())

	opt := NewOpt("/llvm/bin/opt", "/tmp/linked.bc", "/tmp/opt.bc", "-O3", "-internalize")
	assert.Equal(t, "/llvm/bin/opt -O3 -internalize /tmp/linked.bc -o /tmp/opt.bc", opt.Command().String())

	llc := NewLlc("/llvm/bin/llc", "/tmp/opt.bc", "/tmp/out.o", "-O3")
	assert.Equal(t, "/llvm/bin/llc -O3 -filetype=obj /tmp/opt.bc -o /tmp/out.o", llc.Command().String())

	dis := NewLLVMDis("/no/such/llvm-dis", "/tmp/opt.bc", "/tmp/opt.ll")
	assert.False(t, dis.NeedRun())
	assert.Equal(t, "/no/such/llvm-dis /tmp/opt.bc -o /tmp/opt.ll", dis.Command().String())
}
