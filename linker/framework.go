package linker

import (
	"path/filepath"
	"strings"

	"github.com/timmyyuan/native-backend/diag"
	"github.com/timmyyuan/native-backend/target"
)

// FrameworkLayout is where the library of a framework bundle lives.
type FrameworkLayout struct {
	// Bundle is the <Name>.framework directory.
	Bundle string
	Name   string
	// Relative is the library path inside the bundle.
	Relative string
}

// NewFrameworkLayout lays out bundle for t. Desktop bundles are versioned,
// mobile ones are flat.
func NewFrameworkLayout(t target.Target, bundle string) (*FrameworkLayout, error) {
	name := strings.TrimSuffix(filepath.Base(bundle), ".framework")
	if !strings.HasSuffix(bundle, ".framework") {
		bundle += ".framework"
	}

	var rel string
	switch t.Family {
	case target.IOS:
		rel = name
	case target.OSX:
		rel = filepath.Join("Versions", "A", name)
	default:
		return nil, diag.Configurationf("frameworks are not supported on %s", t.Name)
	}
	return &FrameworkLayout{Bundle: bundle, Name: name, Relative: rel}, nil
}

// Library is the absolute path of the linked library.
func (f *FrameworkLayout) Library() string {
	return filepath.Join(f.Bundle, f.Relative)
}

// LinkerArgs sets the install name the library is loaded by.
func (f *FrameworkLayout) LinkerArgs() []string {
	return []string{"-install_name", "@rpath/" + f.Name + ".framework/" + filepath.ToSlash(f.Relative)}
}
