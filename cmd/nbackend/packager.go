package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/timmyyuan/native-backend/producer"
)

const manifestName = "manifest.yaml"

// manifest is written at the root of every packaged library.
type manifest struct {
	Name            string   `yaml:"name"`
	Target          string   `yaml:"target"`
	ABIVersion      int      `yaml:"abi_version"`
	CompilerVersion string   `yaml:"compiler_version"`
	LibraryVersion  string   `yaml:"library_version,omitempty"`
	Bitcode         string   `yaml:"bitcode"`
	Native          []string `yaml:"native,omitempty"`
	Depends         []string `yaml:"depends,omitempty"`
}

// dirPackager lays a library out as a plain directory:
//
//	<output>/manifest.yaml
//	<output>/<target>/<name>.bc
//	<output>/<target>/native/...
type dirPackager struct{}

func (dirPackager) Package(req producer.LibraryRequest) (string, error) {
	root := req.Output
	if err := os.RemoveAll(root); err != nil {
		return "", errors.Wrapf(err, "removing previous %s", root)
	}
	targetDir := filepath.Join(root, req.Target.Name)
	if err := os.MkdirAll(filepath.Join(targetDir, "native"), 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", targetDir)
	}

	m := manifest{
		Name:            req.Name,
		Target:          req.Target.Name,
		ABIVersion:      req.Versioning.ABI,
		CompilerVersion: req.Versioning.Compiler.String(),
		Bitcode:         filepath.Join(req.Target.Name, req.Name+".bc"),
		Depends:         req.Dependencies,
	}
	if req.Versioning.Library != nil {
		m.LibraryVersion = req.Versioning.Library.String()
	}

	if err := copyInto(req.Bitcode, filepath.Join(root, m.Bitcode)); err != nil {
		return "", err
	}
	native := append(append([]string{}, req.NativeLibraries...), req.IncludedBinaries...)
	for _, lib := range native {
		rel := filepath.Join(req.Target.Name, "native", filepath.Base(lib))
		if err := copyInto(lib, filepath.Join(root, rel)); err != nil {
			return "", err
		}
		m.Native = append(m.Native, rel)
	}

	b, err := yaml.Marshal(&m)
	if err != nil {
		return "", errors.Wrap(err, "encoding manifest")
	}
	if err := os.WriteFile(filepath.Join(root, manifestName), b, 0o644); err != nil {
		return "", errors.Wrap(err, "writing manifest")
	}
	return root, nil
}

func copyInto(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s", src)
	}
	return out.Close()
}
