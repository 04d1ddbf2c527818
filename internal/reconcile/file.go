package reconcile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mediahub/internal/mediaclient"
	"mediahub/pkg/domain"
)

const fileScheme = "file://"

// File is an upload attachment, either a path on disk or a one-shot reader.
// Path-backed files survive an outage: the local record keeps a file:// source
// and Reconcile uploads the file once the API is back.
type File struct {
	Name   string
	Path   string
	Reader io.Reader
}

func (f *File) open() (*mediaclient.File, func(), error) {
	if f == nil {
		return nil, func() {}, nil
	}
	if f.Path == "" {
		return &mediaclient.File{Name: f.Name, Reader: f.Reader}, func() {}, nil
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open upload: %w", err)
	}
	return &mediaclient.File{Name: f.displayName(), Reader: fh}, func() { fh.Close() }, nil
}

func (f *File) displayName() string {
	if f.Name == "" && f.Path != "" {
		return filepath.Base(f.Path)
	}
	return f.Name
}

// localHandle is the source recorded on a locally stored item.
func (f *File) localHandle() string {
	if f.Path != "" {
		if abs, err := filepath.Abs(f.Path); err == nil {
			return fileScheme + filepath.ToSlash(abs)
		}
		return fileScheme + filepath.ToSlash(f.Path)
	}
	return domain.BlobPrefix + "local/" + f.displayName()
}

// fileFromSource turns a file:// source back into an attachment.
func fileFromSource(source string) (*File, bool) {
	if !strings.HasPrefix(source, fileScheme) {
		return nil, false
	}
	path := filepath.FromSlash(strings.TrimPrefix(source, fileScheme))
	return &File{Path: path, Name: filepath.Base(path)}, true
}
