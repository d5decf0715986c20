package api

import (
	"encoding/json"
	"net/http"

	"flashbooth/internal/admin"
	"flashbooth/internal/blobstore"
	"flashbooth/internal/config"
	"flashbooth/internal/store"
)

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store     store.ImageRepository
	blobs     blobstore.BlobStore
	authority *admin.Authority

	maxUploadBytes int64
	maxDimension   int
	corsOrigin     string

	mux *http.ServeMux
}

// New creates a new API server.
func New(s store.ImageRepository, blobs blobstore.BlobStore, authority *admin.Authority, cfg config.Config) *Server {
	srv := &Server{
		store:          s,
		blobs:          blobs,
		authority:      authority,
		maxUploadBytes: cfg.MaxUploadBytes,
		maxDimension:   cfg.MaxImageDimension,
		corsOrigin:     cfg.CORSOrigin,
		mux:            http.NewServeMux(),
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.limitBody(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/images", s.handleUpload)
	s.mux.HandleFunc("GET /api/images", s.handleListImages)
	s.mux.HandleFunc("GET /api/images/{id}", s.handleGetImage)
	s.mux.HandleFunc("POST /api/images/{id}/share", s.handleShare)
	s.mux.HandleFunc("DELETE /api/images/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /api/blobs/{ref...}", s.handleBlob)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origin := s.corsOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to the configured upload limit.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
