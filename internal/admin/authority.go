// Package admin implements the token-gated administrative operations.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"flashbooth/internal/blobstore"
	"flashbooth/internal/model"
)

// Result discriminates the outcome of an admin operation so callers can
// branch on the exact cause instead of unpacking error strings.
type Result string

const (
	ResultOk            Result = "ok"
	ResultNotConfigured Result = "not_configured"
	ResultInvalidToken  Result = "invalid_token"
	ResultNotFound      Result = "not_found"
)

// ImageRemover is the store surface the authority needs.
type ImageRemover interface {
	GetImage(ctx context.Context, id string) (*model.Image, error)
	DeleteImage(ctx context.Context, id string) error
	BlobRefInUse(ctx context.Context, ref string) (bool, error)
}

// Authority performs admin-only mutations. The secret is injected at
// construction so it can be fixed in tests; it is never read from process
// environment here and never included in errors or logs.
type Authority struct {
	secret string
	store  ImageRemover
	blobs  blobstore.BlobStore
}

// New creates an Authority. An empty secret disables all admin operations.
func New(secret string, store ImageRemover, blobs blobstore.BlobStore) *Authority {
	return &Authority{secret: secret, store: store, blobs: blobs}
}

// Delete removes an image record after validating the supplied token. Blob
// deletion is best-effort: a failure there is logged and the operation
// still reports ResultOk, since the metadata row is already gone.
func (a *Authority) Delete(ctx context.Context, id, token string) (Result, error) {
	if a.secret == "" {
		return ResultNotConfigured, nil
	}
	if token != a.secret {
		return ResultInvalidToken, nil
	}

	img, err := a.store.GetImage(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ResultNotFound, nil
	}
	if err != nil {
		return "", err
	}

	if err := a.store.DeleteImage(ctx, id); err != nil {
		return "", err
	}

	// The blob store deduplicates identical payloads, so another image row
	// may still point at this blob. Only remove bytes nothing references.
	inUse, err := a.store.BlobRefInUse(ctx, img.BlobRef)
	if err != nil {
		slog.Warn("blob reference check failed after image delete", "image_id", id, "blob_ref", img.BlobRef, "error", err)
		return ResultOk, nil
	}
	if inUse {
		slog.Info("blob retained, still referenced by other images", "image_id", id, "blob_ref", img.BlobRef)
		return ResultOk, nil
	}

	if err := a.blobs.Delete(ctx, img.BlobRef); err != nil {
		slog.Warn("blob cleanup failed after image delete", "image_id", id, "blob_ref", img.BlobRef, "error", err)
	}
	return ResultOk, nil
}
