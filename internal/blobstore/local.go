package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores blob bytes in a content-addressed tree on the local
// filesystem. Keys look like "sha256/ab/abcdef...", so identical payloads
// share one file and writes are naturally idempotent.
type Local struct {
	root string
}

// NewLocal creates a local blob store rooted at root.
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Put streams bytes to a temp file, computes the SHA-256 digest, and moves
// the file to its digest path. Re-putting existing content is a no-op.
func (l *Local) Put(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Join(l.root, "tmp"), "put-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	ref := refFromDigest(digest)
	dst := filepath.Join(l.root, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return "", err
	}

	if _, err := os.Stat(dst); err == nil {
		os.Remove(tmpPath)
		return ref, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		cleanup()
		return "", err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return "", err
	}
	return ref, nil
}

// Open returns a reader for the blob's content.
func (l *Local) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.pathFromRef(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a blob. Missing blobs are not an error.
func (l *Local) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := l.pathFromRef(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func refFromDigest(digest string) string {
	return "sha256/" + digest[:2] + "/" + digest
}

// pathFromRef validates a ref and maps it into the store root. Refs with
// path traversal or an unexpected shape are rejected.
func (l *Local) pathFromRef(ref string) (string, error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 3 || parts[0] != "sha256" || len(parts[2]) != 64 {
		return "", fmt.Errorf("invalid blob ref %q", ref)
	}
	for _, p := range parts[1:] {
		if p == "" || strings.ContainsAny(p, `\.`) {
			return "", fmt.Errorf("invalid blob ref %q", ref)
		}
	}
	return filepath.Join(l.root, filepath.FromSlash(ref)), nil
}
