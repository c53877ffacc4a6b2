package producer

import (
	"github.com/blang/semver"

	"github.com/timmyyuan/native-backend/diag"
	"github.com/timmyyuan/native-backend/linker"
	"github.com/timmyyuan/native-backend/target"
)

// ABIVersion is the version of the bitcode ABI written into libraries.
const ABIVersion = 1

// CompilerVersion is the version of this backend.
var CompilerVersion = semver.MustParse("0.9.0")

// LibraryVersioning is stored in every packaged library.
type LibraryVersioning struct {
	ABI int
	// Library is nil when the library was not given a version.
	Library  *semver.Version
	Compiler semver.Version
}

// NewLibraryVersioning parses the user-declared library version, if any.
func NewLibraryVersioning(libraryVersion string) (LibraryVersioning, error) {
	v := LibraryVersioning{ABI: ABIVersion, Compiler: CompilerVersion}
	if libraryVersion == "" {
		return v, nil
	}
	lib, err := semver.ParseTolerant(libraryVersion)
	if err != nil {
		return v, diag.Configurationf("library version %q: %v", libraryVersion, err)
	}
	v.Library = &lib
	return v, nil
}

// LibraryRequest is everything the packager receives for library output.
type LibraryRequest struct {
	Name   string
	Output string
	Target target.Target
	// Bitcode is the serialized module.
	Bitcode          string
	NativeLibraries  []string
	IncludedBinaries []string
	Dependencies     []string
	Versioning       LibraryVersioning
}

// LibraryPackager writes a library in its distribution format.
type LibraryPackager interface {
	Package(req LibraryRequest) (string, error)
}

func includedBinaries(deps []linker.Dependency) []string {
	var result []string
	for _, dep := range deps {
		result = append(result, dep.IncludedBinaries...)
	}
	return result
}
