package api

import (
	"bytes"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"flashbooth/internal/admin"
	"flashbooth/internal/model"
)

// imageResponse is an image record with its blob URL attached, the shape
// the gallery consumes.
type imageResponse struct {
	model.Image
	URL string `json:"url"`
}

func toResponse(img model.Image) imageResponse {
	return imageResponse{Image: img, URL: "/api/blobs/" + img.BlobRef}
}

// ---------------------------------------------------------------------------
// POST /api/images
// ---------------------------------------------------------------------------

// handleUpload accepts a photograph (multipart "image" field, or a raw image
// body), stores it, and submits a generation job for it. The job id is the
// original image's id; generation runs asynchronously.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_upload", err.Error())
		return
	}

	data, err = s.normalizeImage(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "not_an_image", "body does not decode as an image")
		return
	}

	// The blob is stored before the record is created, so a pending job
	// always has a readable source.
	ref, err := s.blobs.Put(r.Context(), bytes.NewReader(data))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", "failed to store image")
		return
	}

	img := model.NewOriginal(uuid.New().String(), ref)
	if err := s.store.CreateImage(r.Context(), img); err != nil {
		writeError(w, http.StatusInternalServerError, "storage", "failed to create image record")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(img))
}

func readUpload(r *http.Request) ([]byte, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, errors.New(`multipart upload needs an "image" field`)
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty upload body")
	}
	return data, nil
}

// normalizeImage validates that the payload decodes as an image and
// downscales oversized sources so provider payloads stay bounded. Images
// already within the limit are stored byte-for-byte as uploaded.
func (s *Server) normalizeImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() <= s.maxDimension && bounds.Dy() <= s.maxDimension {
		return data, nil
	}

	resized := imaging.Fit(img, s.maxDimension, s.maxDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ---------------------------------------------------------------------------
// GET /api/images
// ---------------------------------------------------------------------------

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	filter := model.ImageFilter{
		Kind:       r.URL.Query().Get("kind"),
		PublicOnly: r.URL.Query().Get("public") == "true",
	}

	images, err := s.store.ListImages(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", "failed to list images")
		return
	}

	out := make([]imageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, toResponse(img))
	}
	writeJSON(w, http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// GET /api/images/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	img, err := s.store.GetImage(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", "failed to get image")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(*img))
}

// ---------------------------------------------------------------------------
// POST /api/images/{id}/share
// ---------------------------------------------------------------------------

// handleShare publishes a derived image to the public feed. Re-sharing an
// already-public image succeeds without changing its shared_at.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	img, err := s.store.GetImage(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", "failed to get image")
		return
	}
	if img.Kind != model.KindDerived {
		writeError(w, http.StatusConflict, "not_derived", "only generated images can be shared")
		return
	}

	if _, err := s.store.PublishImage(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "storage", "failed to share image")
		return
	}

	img, err = s.store.GetImage(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", "failed to get image")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(*img))
}

// ---------------------------------------------------------------------------
// DELETE /api/images/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	token := r.Header.Get("X-Admin-Token")

	res, err := s.authority.Delete(r.Context(), id, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", "failed to delete image")
		return
	}

	switch res {
	case admin.ResultNotConfigured:
		writeError(w, http.StatusServiceUnavailable, "not_configured", "admin operations are not configured")
	case admin.ResultInvalidToken:
		writeError(w, http.StatusForbidden, "invalid_token", "admin token does not match")
	case admin.ResultNotFound:
		writeError(w, http.StatusNotFound, "not_found", "image not found")
	case admin.ResultOk:
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
	}
}

// ---------------------------------------------------------------------------
// GET /api/blobs/{ref...}
// ---------------------------------------------------------------------------

// handleBlob streams stored image bytes; this is the URL surface listings
// point at.
func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")

	rc, err := s.blobs.Open(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "blob not found")
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage", "failed to read blob")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}
