package model

import "time"

// Generation status constants (originals only).
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Image kind constants.
const (
	KindOriginal = "original"
	KindDerived  = "derived"
)

// Image represents one stored image, either a user submission (original)
// or the output of a successful transformation (derived).
type Image struct {
	ID        string `json:"id"`
	BlobRef   string `json:"blob_ref"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`

	// Originals only.
	GenerationStatus *string `json:"generation_status,omitempty"`
	GenerationError  *string `json:"generation_error,omitempty"`
	DerivedImageID   *string `json:"derived_image_id,omitempty"`

	// Derived only.
	SourceImageID *string `json:"source_image_id,omitempty"`
	IsPublic      bool    `json:"is_public"`
	SharedAt      *string `json:"shared_at,omitempty"`
}

// ImageFilter holds query parameters for listing images.
type ImageFilter struct {
	Kind       string
	PublicOnly bool
}

// NewOriginal creates an original Image in pending state.
func NewOriginal(id, blobRef string) Image {
	status := StatusPending
	return Image{
		ID:               id,
		BlobRef:          blobRef,
		Kind:             KindOriginal,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
		GenerationStatus: &status,
	}
}

// NewDerived creates a derived Image linked back to its source original.
func NewDerived(id, blobRef, sourceImageID string) Image {
	return Image{
		ID:            id,
		BlobRef:       blobRef,
		Kind:          KindDerived,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		SourceImageID: &sourceImageID,
	}
}
