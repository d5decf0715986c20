package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"flashbooth/internal/blobstore"
	"flashbooth/internal/model"
	"flashbooth/internal/store"
)

// Pipeline executes one generation job: resolve the source blob, call the
// transformation provider once, persist the derived image, and link it to
// the original.
type Pipeline struct {
	store       *store.Store
	blobs       blobstore.BlobStore
	transformer Transformer
}

// NewPipeline creates a pipeline with the given dependencies.
func NewPipeline(s *store.Store, blobs blobstore.BlobStore, t Transformer) *Pipeline {
	return &Pipeline{store: s, blobs: blobs, transformer: t}
}

// Run executes the job for an already-claimed (processing) original.
// The ordering is load-bearing: the derived record must exist in storage
// before the original is marked completed, and the link + completed status
// land in one atomic row update. On any error the caller is responsible for
// the terminal failed write.
func (p *Pipeline) Run(ctx context.Context, img *model.Image) error {
	// Step 1: resolve the source blob.
	source, err := p.readBlob(ctx, img.BlobRef)
	if err != nil {
		return &StepError{Step: "resolve", Err: err}
	}
	mimeType := http.DetectContentType(source)

	// Step 2: transform.
	out, err := p.transformer.Transform(ctx, source, mimeType)
	if err != nil {
		return &StepError{Step: "transform", Err: err}
	}

	// Step 3: store the derived blob and record.
	ref, err := p.blobs.Put(ctx, bytes.NewReader(out))
	if err != nil {
		return &StepError{Step: "store", Err: err}
	}
	derived := model.NewDerived(uuid.New().String(), ref, img.ID)
	if err := p.store.CreateImage(ctx, derived); err != nil {
		return &StepError{Step: "store", Err: err}
	}

	// Step 4: link and complete.
	if err := p.store.CompleteGeneration(ctx, img.ID, derived.ID); err != nil {
		return &StepError{Step: "link", Err: err}
	}
	return nil
}

func (p *Pipeline) readBlob(ctx context.Context, ref string) ([]byte, error) {
	rc, err := p.blobs.Open(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("open source blob %s: %w", ref, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read source blob %s: %w", ref, err)
	}
	return data, nil
}

// StepError wraps an error with the pipeline step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepName returns the failing step for error reporting.
func (e *StepError) StepName() string {
	return e.Step
}
