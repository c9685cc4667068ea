package postgres

import (
	"context"
	"fmt"

	"github.com/viewlulu/pouch-backend/internal/catalog"
)

// PhotoRepository provides PostgreSQL-backed storage for a user's standalone
// personal photos.
type PhotoRepository struct {
	pool *Pool
}

// NewPhotoRepository creates a new PostgreSQL photo repository.
func NewPhotoRepository(pool *Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

// CreatePhoto inserts a new personal photo and fills in its CreatedAt.
func (r *PhotoRepository) CreatePhoto(ctx context.Context, photo *catalog.UserPhoto) error {
	query := `
		INSERT INTO personal_photos (id, user_id, storage_key, thumbnail_key, original_name, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		photo.ID, photo.UserID, photo.StorageKey, photo.ThumbnailKey, photo.OriginalName, photo.MimeType,
	).Scan(&photo.CreatedAt)
	if err != nil {
		return fmt.Errorf("create personal photo: %w", err)
	}
	return nil
}

// ListPhotos returns the user's personal photos, newest first.
func (r *PhotoRepository) ListPhotos(ctx context.Context, userID int64) ([]catalog.UserPhoto, error) {
	query := `
		SELECT id, user_id, storage_key, thumbnail_key, original_name, mime_type, created_at
		FROM personal_photos
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list personal photos: %w", err)
	}
	defer rows.Close()

	photos := []catalog.UserPhoto{}
	for rows.Next() {
		var p catalog.UserPhoto
		if err := rows.Scan(&p.ID, &p.UserID, &p.StorageKey, &p.ThumbnailKey, &p.OriginalName, &p.MimeType, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan personal photo row: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personal photo rows: %w", err)
	}
	return photos, nil
}
