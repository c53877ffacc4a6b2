// Package tempfiles manages the per-session working directory that holds
// intermediate bitcode, objects and linked modules.
package tempfiles

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const lockName = ".session.lock"

// Files hands out temporary file names inside one session directory. Names
// are derived only from the requested name and suffix, so two runs over the
// same inputs produce the same paths.
type Files struct {
	dir     string
	keep    bool
	lock    *flock.Flock
	created []string
}

// New creates a fresh temporary directory that is removed by Dispose.
func New(prefix string) (*Files, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, errors.Wrap(err, "creating session directory")
	}
	return &Files{dir: dir}, nil
}

// Keep uses dir as the session directory and leaves its contents in place
// after Dispose. The directory is locked so that two sessions cannot share it.
func Keep(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating session directory %s", dir)
	}

	lock := flock.New(filepath.Join(dir, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "locking %s", dir)
	}
	if !locked {
		return nil, errors.Errorf("session directory %s is in use by another build", dir)
	}
	return &Files{dir: dir, keep: true, lock: lock}, nil
}

// Dir is the session directory.
func (f *Files) Dir() string {
	return f.dir
}

// Create returns the absolute path <dir>/<name><suffix>. The file itself is
// not created.
func (f *Files) Create(name, suffix string) string {
	path := filepath.Join(f.dir, name+suffix)
	f.created = append(f.created, path)
	return path
}

// Named paths used across the pipeline.

func (f *Files) NativeBinaryBitcode() string { return f.Create("out", ".bc") }
func (f *Files) CAdapterSource() string      { return f.Create("api", ".cpp") }
func (f *Files) CAdapterBitcode() string     { return f.Create("api", ".bc") }

// Dispose removes the session directory, or for a kept directory only
// releases its lock.
func (f *Files) Dispose() error {
	var result error
	if f.lock != nil {
		if err := f.lock.Unlock(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if f.keep {
		glog.V(5).Infof("keeping temporary files in %s", f.dir)
		return result
	}

	for _, path := range f.created {
		if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, err)
		}
	}
	if err := os.RemoveAll(f.dir); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}
