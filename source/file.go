package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
)

// FileSource a configuration file on the local file system
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource; relative paths are made absolute
func NewFileSource(path string) *FileSource {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &FileSource{path: path}
}

// Path absolute path of the file
func (s *FileSource) Path() string {
	return s.path
}

// Identity implements Source
func (s *FileSource) Identity() string {
	return "file:" + s.path
}

// Marker is the modification time in nanoseconds plus the size
func (s *FileSource) Marker(ctx context.Context) (Marker, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return "", errcode.ErrSourceUnreadable.Wrapf(err, "stat %s", s.path)
	}
	return Marker(fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size())), nil
}

// Open implements Source
func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errcode.ErrSourceUnreadable.Wrapf(err, "open %s", s.path)
	}
	return f, nil
}
