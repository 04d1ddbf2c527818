package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// ErrBlobNotFound is returned when an upload name is unknown.
var ErrBlobNotFound = errors.New("blob not found")

// Blobs stores uploaded media files by server-assigned name.
type Blobs interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, name string) error
	// ServeBlob writes the named upload to w or redirects to it.
	ServeBlob(w http.ResponseWriter, r *http.Request, name string)
}
