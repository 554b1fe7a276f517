package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mockielts/mockielts-backend/internal/model"
)

// MediaRepository records uploaded files.
type MediaRepository struct {
	pool *pgxpool.Pool
}

// NewMediaRepository creates a new MediaRepository.
func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

// Create inserts an uploaded file record.
func (r *MediaRepository) Create(ctx context.Context, f *model.MediaFile) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO media_files (id, kind, file_name, mime_type, size_bytes, uploaded_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		f.ID, f.Kind, f.FileName, f.MimeType, f.SizeBytes, f.UploadedBy,
	).Scan(&f.CreatedAt)
}

// Exists reports whether a file id was recorded.
func (r *MediaRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM media_files WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, err
}
