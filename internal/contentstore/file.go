package contentstore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/brilliantaksan/brilliantaksan-web/internal/xerrors"
)

// fileSystem is the slice of the OS the file medium needs.
type fileSystem interface {
	ReadFile(name string) ([]byte, error)
	// Writable opens name for writing without truncating it.
	Writable(name string) bool
	// WriteFileAtomic replaces name so readers never see a partial document.
	WriteFileAtomic(name string, data []byte) error
}

type osFS struct{}

func (osFS) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (osFS) Writable(name string) bool {
	f, err := os.OpenFile(name, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func (osFS) WriteFileAtomic(name string, data []byte) error {
	dir := filepath.Dir(name)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, name); err != nil {
		cleanup()
		return err
	}
	return nil
}

// localFile is the file medium.
type localFile struct {
	path string
	fs   fileSystem
}

func (f *localFile) Writable() bool { return f.fs.Writable(f.path) }

func (f *localFile) Read() ([]byte, error) {
	b, err := f.fs.ReadFile(f.path)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read %s", f.path)
	}
	return b, nil
}

func (f *localFile) Write(data []byte) error {
	// unwrapped so callers can classify the errno
	return f.fs.WriteFileAtomic(f.path, data)
}

// isReadOnly reports filesystem errors that mean "this deployment cannot
// write here" rather than a transient failure.
func isReadOnly(err error) bool {
	return errors.Is(err, syscall.EROFS) ||
		errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, fs.ErrPermission)
}
