package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	objstore "mediahub/pkg/storage"
)

const presignExpiry = 15 * time.Minute

// ObjectBlobs keeps uploads in an object store and redirects reads to presigned URLs.
type ObjectBlobs struct {
	store objstore.ObjectStore
}

func NewObjectBlobs(store objstore.ObjectStore) *ObjectBlobs {
	return &ObjectBlobs{store: store}
}

func (o *ObjectBlobs) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	return o.store.Put(ctx, name, r, size, contentType)
}

func (o *ObjectBlobs) Delete(ctx context.Context, name string) error {
	return o.store.Delete(ctx, name)
}

func (o *ObjectBlobs) ServeBlob(w http.ResponseWriter, r *http.Request, name string) {
	if _, err := o.store.Stat(r.Context(), name); err != nil {
		if !errors.Is(err, objstore.ErrObjectNotFound) {
			slog.Warn("blob stat failed", "name", name, "err", err)
		}
		http.NotFound(w, r)
		return
	}
	url, err := o.store.PresignGet(r.Context(), name, presignExpiry)
	if err != nil {
		slog.Error("blob presign failed", "name", name, "err", err)
		http.Error(w, "storage unavailable", http.StatusBadGateway)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
