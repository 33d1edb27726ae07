package health

import (
	"io"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// FileSystem is the subset of filesystem calls the classifier makes. Every
// method follows symlinks except Readlink.
type FileSystem interface {
	Readlink(name string) (string, error)
	Stat(name string) (fs.FileInfo, error)
	// Access returns nil when the calling process may read name.
	Access(name string) error
	Open(name string) (io.ReadCloser, error)
}

// OSFileSystem is the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Readlink(name string) (string, error) { return os.Readlink(name) }

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// Access uses access(2) with R_OK so ACLs and the real uid are honored.
func (OSFileSystem) Access(name string) error {
	if err := unix.Access(name, unix.R_OK); err != nil {
		return &fs.PathError{Op: "access", Path: name, Err: err}
	}
	return nil
}

func (OSFileSystem) Open(name string) (io.ReadCloser, error) { return os.Open(name) }
