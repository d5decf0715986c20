package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"flashbooth/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ ImageReader = (*Store)(nil)
	_ ImageWriter = (*Store)(nil)
	_ JobClaimer  = (*Store)(nil)
)

// ErrNotProcessing is returned when a terminal write is attempted on a job
// that is no longer in the processing state.
var ErrNotProcessing = errors.New("image is not processing")

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 1

func (s *Store) migrate() error {
	// Ensure the schema_version table exists.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		// Fresh database: initialize to version 0.
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
//
// is_public is NOT NULL DEFAULT 0: a derived image is never visible on the
// public feed without an explicit publish.
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id                TEXT PRIMARY KEY,
		blob_ref          TEXT NOT NULL,
		kind              TEXT NOT NULL,
		created_at        TEXT NOT NULL,
		generation_status TEXT,
		generation_error  TEXT,
		derived_image_id  TEXT,
		source_image_id   TEXT,
		is_public         INTEGER NOT NULL DEFAULT 0,
		shared_at         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_images_created ON images(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_images_status ON images(generation_status) WHERE generation_status IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_images_public ON images(is_public, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

const imageColumns = `id, blob_ref, kind, created_at, generation_status, generation_error, derived_image_id, source_image_id, is_public, shared_at`

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// GetImage returns a single image record. Returns sql.ErrNoRows if absent.
func (s *Store) GetImage(ctx context.Context, id string) (*model.Image, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id = ?`, id)
	return scanImage(row)
}

// ListImages returns images matching the filter, newest first.
func (s *Store) ListImages(ctx context.Context, f model.ImageFilter) ([]model.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images`
	var conditions []string
	var args []interface{}

	if f.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.PublicOnly {
		conditions = append(conditions, "is_public = 1")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// CreateImage inserts a new image record.
func (s *Store) CreateImage(ctx context.Context, img model.Image) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (`+imageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID, img.BlobRef, img.Kind, img.CreatedAt,
		img.GenerationStatus, img.GenerationError, img.DerivedImageID,
		img.SourceImageID, boolToInt(img.IsPublic), img.SharedAt,
	)
	return err
}

// ClaimNextPending atomically picks the oldest pending original and moves it
// to processing. Returns nil if no job is available. The single-statement
// claim is what makes duplicate delivery of the same job a no-op: only one
// claimer can win the pending→processing transition.
func (s *Store) ClaimNextPending(ctx context.Context) (*model.Image, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE images SET generation_status = ?
		WHERE id = (SELECT id FROM images WHERE kind = ? AND generation_status = ? ORDER BY created_at ASC, id LIMIT 1)
		RETURNING `+imageColumns,
		model.StatusProcessing, model.KindOriginal, model.StatusPending,
	)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return img, err
}

// MarkFailed moves a processing job to the terminal failed state with a
// human-readable reason. Only a claimed job can fail: pending jobs, jobs
// already in a terminal state, and records deleted mid-flight are left
// untouched.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE images SET generation_status = ?, generation_error = ?
		WHERE id = ? AND generation_status = ?`,
		model.StatusFailed, reason, id, model.StatusProcessing,
	)
	return err
}

// CompleteGeneration links the derived image and marks the original
// completed in one atomic row update. The derived record must already exist
// when this is called. Returns ErrNotProcessing if the original is no longer
// processing, so a half-finished job can never present as completed.
func (s *Store) CompleteGeneration(ctx context.Context, originalID, derivedID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images SET generation_status = ?, derived_image_id = ?, generation_error = NULL
		WHERE id = ? AND generation_status = ?`,
		model.StatusCompleted, derivedID, originalID, model.StatusProcessing,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("complete %s: %w", originalID, ErrNotProcessing)
	}
	return nil
}

// PublishImage makes a derived image visible on the public feed. It reports
// whether this call changed anything: false means the image was already
// public (shared_at keeps its first value), did not exist, or is not a
// derived image.
func (s *Store) PublishImage(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		UPDATE images SET is_public = 1, shared_at = ?
		WHERE id = ? AND kind = ? AND is_public = 0`,
		now, id, model.KindDerived,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteImage removes an image record.
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	return err
}

// BlobRefInUse reports whether any image row references the blob. The blob
// store is content-addressed, so identical payloads share one blob; callers
// must not delete a blob that other rows still point at.
func (s *Store) BlobRefInUse(ctx context.Context, ref string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE blob_ref = ?`, ref).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ResetStaleProcessing requeues any processing jobs left over from a
// previous run, so scheduling survives a process restart.
func (s *Store) ResetStaleProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE images SET generation_status = ? WHERE generation_status = ?`,
		model.StatusPending, model.StatusProcessing,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row scanner) (*model.Image, error) {
	var img model.Image
	var isPublic int
	err := row.Scan(&img.ID, &img.BlobRef, &img.Kind, &img.CreatedAt,
		&img.GenerationStatus, &img.GenerationError, &img.DerivedImageID,
		&img.SourceImageID, &isPublic, &img.SharedAt)
	if err != nil {
		return nil, err
	}
	img.IsPublic = isPublic == 1
	return &img, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
