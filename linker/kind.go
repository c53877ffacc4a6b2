package linker

import (
	"strings"

	"github.com/timmyyuan/native-backend/diag"
)

// ProduceKind is the artifact a session was asked to produce.
type ProduceKind int

const (
	Program ProduceKind = iota
	DynamicLibrary
	StaticLibrary
	Framework
	Library
	Bitcode
)

var produceNames = map[ProduceKind]string{
	Program:        "program",
	DynamicLibrary: "dynamic",
	StaticLibrary:  "static",
	Framework:      "framework",
	Library:        "library",
	Bitcode:        "bitcode",
}

func (k ProduceKind) String() string {
	if name, ok := produceNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseProduceKind accepts the names printed by String.
func ParseProduceKind(s string) (ProduceKind, error) {
	for k, name := range produceNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, diag.Configurationf("unknown produce kind %q", s)
}

// IsNativeBinary reports whether k goes through the backend and the linker.
func (k ProduceKind) IsNativeBinary() bool {
	switch k {
	case Program, DynamicLibrary, StaticLibrary, Framework:
		return true
	}
	return false
}

// OutputKind is what the platform linker is asked to build.
type OutputKind int

const (
	Executable OutputKind = iota
	DynamicLibraryOutput
	StaticLibraryOutput
)

func (k OutputKind) String() string {
	switch k {
	case Executable:
		return "executable"
	case DynamicLibraryOutput:
		return "dynamic library"
	case StaticLibraryOutput:
		return "static library"
	}
	return "unknown"
}

// DetermineOutput maps a produce kind to the linker output kind. Library and
// bitcode output never reach the linker.
func DetermineOutput(produce ProduceKind, staticFramework bool) (OutputKind, error) {
	switch produce {
	case Program:
		return Executable, nil
	case DynamicLibrary:
		return DynamicLibraryOutput, nil
	case StaticLibrary:
		return StaticLibraryOutput, nil
	case Framework:
		if staticFramework {
			return StaticLibraryOutput, nil
		}
		return DynamicLibraryOutput, nil
	}
	return 0, diag.Configurationf("%s output is not produced by the linker", produce)
}

// AsLinkerArgs explodes every "-Wl,a,b,c" into a, b, c when the linker is run
// directly. A compiler driver understands -Wl, so args are kept as they are.
func AsLinkerArgs(args []string, compilerDriver bool) []string {
	if compilerDriver {
		return append([]string{}, args...)
	}
	result := []string{}
	for _, arg := range args {
		if strings.HasPrefix(arg, "-Wl,") {
			result = append(result, strings.Split(strings.TrimPrefix(arg, "-Wl,"), ",")...)
			continue
		}
		result = append(result, arg)
	}
	return result
}
