package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/viewlulu/pouch-backend/internal/catalog"
)

// GroupRepository provides PostgreSQL-backed storage for cosmetic groups and
// their reference photos. It also implements catalog.CandidateSource for the
// detection pipeline.
type GroupRepository struct {
	pool *Pool
}

// NewGroupRepository creates a new PostgreSQL group repository.
func NewGroupRepository(pool *Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// CreateGroup inserts a new group and fills in its CreatedAt.
func (r *GroupRepository) CreateGroup(ctx context.Context, group *catalog.Group) error {
	query := `
		INSERT INTO cosmetic_groups (id, user_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	if err := r.pool.QueryRow(ctx, query, group.ID, group.UserID, group.Name).Scan(&group.CreatedAt); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// AddPhoto attaches a reference photo to an existing group.
func (r *GroupRepository) AddPhoto(ctx context.Context, photo *catalog.Photo) error {
	query := `
		INSERT INTO cosmetic_photos (id, group_id, storage_key, original_name, mime_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		photo.ID, photo.GroupID, photo.StorageKey, photo.OriginalName, photo.MimeType,
	).Scan(&photo.CreatedAt)
	if err != nil {
		return fmt.Errorf("add photo to group %s: %w", photo.GroupID, err)
	}
	return nil
}

// ListGroups returns the user's groups, most recently created first, each
// with the storage key of its earliest-uploaded photo as thumbnail.
func (r *GroupRepository) ListGroups(ctx context.Context, userID int64) ([]catalog.GroupSummary, error) {
	query := `
		SELECT
			cg.id, cg.name, cg.created_at, cg.opened_at, cg.expired_at,
			COALESCE((
				SELECT p.storage_key
				FROM cosmetic_photos p
				WHERE p.group_id = cg.id
				ORDER BY p.created_at ASC, p.storage_key ASC
				LIMIT 1
			), '') AS thumbnail_key
		FROM cosmetic_groups cg
		WHERE cg.user_id = $1
		ORDER BY cg.created_at DESC, cg.id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := []catalog.GroupSummary{}
	for rows.Next() {
		var g catalog.GroupSummary
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.OpenedAt, &g.ExpiredAt, &g.ThumbnailKey); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group rows: %w", err)
	}
	return groups, nil
}

// GetGroup returns one group with its photos in upload order.
func (r *GroupRepository) GetGroup(ctx context.Context, groupID string, userID int64) (*catalog.GroupDetail, error) {
	query := `
		SELECT id, user_id, name, created_at, opened_at, expired_at
		FROM cosmetic_groups
		WHERE id = $1 AND user_id = $2
	`

	var detail catalog.GroupDetail
	err := r.pool.QueryRow(ctx, query, groupID, userID).Scan(
		&detail.ID, &detail.UserID, &detail.Name,
		&detail.CreatedAt, &detail.OpenedAt, &detail.ExpiredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	photosQuery := `
		SELECT id, group_id, storage_key, original_name, mime_type, created_at
		FROM cosmetic_photos
		WHERE group_id = $1
		ORDER BY created_at ASC, storage_key ASC
	`

	rows, err := r.pool.Query(ctx, photosQuery, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p catalog.Photo
		if err := rows.Scan(&p.ID, &p.GroupID, &p.StorageKey, &p.OriginalName, &p.MimeType, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan photo row: %w", err)
		}
		detail.Photos = append(detail.Photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo rows: %w", err)
	}
	return &detail, nil
}

// UpdateGroup applies the non-nil fields of upd and returns the updated group.
func (r *GroupRepository) UpdateGroup(ctx context.Context, groupID string, userID int64, upd catalog.GroupUpdate) (*catalog.Group, error) {
	query := `
		UPDATE cosmetic_groups SET
			name = COALESCE($3, name),
			opened_at = COALESCE($4, opened_at),
			expired_at = COALESCE($5, expired_at)
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, created_at, opened_at, expired_at
	`

	var g catalog.Group
	err := r.pool.QueryRow(ctx, query, groupID, userID, upd.Name, upd.OpenedAt, upd.ExpiredAt).Scan(
		&g.ID, &g.UserID, &g.Name, &g.CreatedAt, &g.OpenedAt, &g.ExpiredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}
	return &g, nil
}

// GroupPhotoKeys returns the storage keys of all photos in a group.
func (r *GroupRepository) GroupPhotoKeys(ctx context.Context, groupID string, userID int64) ([]string, error) {
	query := `
		SELECT p.storage_key
		FROM cosmetic_photos p
		JOIN cosmetic_groups cg ON cg.id = p.group_id
		WHERE p.group_id = $1 AND cg.user_id = $2
		ORDER BY p.created_at ASC, p.storage_key ASC
	`

	rows, err := r.pool.Query(ctx, query, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("list group photo keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan photo key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo keys: %w", err)
	}
	return keys, nil
}

// DeleteGroup removes a group; photo rows go with it via ON DELETE CASCADE.
func (r *GroupRepository) DeleteGroup(ctx context.Context, groupID string, userID int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM cosmetic_groups WHERE id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete group rows affected: %w", err)
	}
	if affected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// ListCandidates assembles the detection comparison set for a user: every
// group with the storage keys of all its reference photos. Groups come back
// most recently created first; that ordering is the resolver's tie-break and
// must be preserved here. Photo keys within a group are in upload order.
func (r *GroupRepository) ListCandidates(ctx context.Context, userID int64) ([]catalog.Candidate, error) {
	query := `
		SELECT cg.id, p.storage_key
		FROM cosmetic_groups cg
		JOIN cosmetic_photos p ON p.group_id = cg.id
		WHERE cg.user_id = $1
		ORDER BY cg.created_at DESC, cg.id, p.created_at ASC, p.storage_key ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list candidates: %v", catalog.ErrDependency, err)
	}
	defer rows.Close()

	candidates := []catalog.Candidate{}
	index := map[string]int{}
	for rows.Next() {
		var groupID, key string
		if err := rows.Scan(&groupID, &key); err != nil {
			return nil, fmt.Errorf("%w: scan candidate row: %v", catalog.ErrDependency, err)
		}
		i, ok := index[groupID]
		if !ok {
			i = len(candidates)
			index[groupID] = i
			candidates = append(candidates, catalog.Candidate{GroupID: groupID})
		}
		candidates[i].StorageKeys = append(candidates[i].StorageKeys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate candidate rows: %v", catalog.ErrDependency, err)
	}
	return candidates, nil
}
