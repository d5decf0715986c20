package store

import (
	"context"

	"flashbooth/internal/model"
)

// ImageReader provides read access to image records.
type ImageReader interface {
	GetImage(ctx context.Context, id string) (*model.Image, error)
	ListImages(ctx context.Context, f model.ImageFilter) ([]model.Image, error)
}

// ImageWriter provides write access to image records.
type ImageWriter interface {
	CreateImage(ctx context.Context, img model.Image) error
	MarkFailed(ctx context.Context, id, reason string) error
	CompleteGeneration(ctx context.Context, originalID, derivedID string) error
	PublishImage(ctx context.Context, id string) (bool, error)
	DeleteImage(ctx context.Context, id string) error
}

// JobClaimer provides atomic claim operations for the background worker.
type JobClaimer interface {
	ClaimNextPending(ctx context.Context) (*model.Image, error)
	ResetStaleProcessing(ctx context.Context) (int64, error)
}

// ImageRepository combines all image operations for the API layer.
type ImageRepository interface {
	ImageReader
	ImageWriter
}
