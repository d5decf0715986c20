package blobstore

import (
	"context"
	"io"
)

// BlobStore is the byte-storage abstraction behind image records. A ref is
// an opaque key returned by Put; it never changes for a given payload.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader) (ref string, err error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}
