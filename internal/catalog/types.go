// Package catalog defines the domain model for a user's cosmetics pouch:
// registered users, cosmetic groups, and the reference photos stored for
// each group in blob storage.
package catalog

import "time"

// User is a registered account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Group is one registered cosmetic item, owned by a user. A group holds one
// or more reference photos used for detection.
type Group struct {
	ID        string
	UserID    int64
	Name      string
	CreatedAt time.Time
	OpenedAt  *time.Time
	ExpiredAt *time.Time
}

// Photo is one stored reference image belonging to a group. StorageKey
// locates the bytes in blob storage.
type Photo struct {
	ID           string
	GroupID      string
	StorageKey   string
	OriginalName string
	MimeType     string
	CreatedAt    time.Time
}

// UserPhoto is a standalone personal photo, owned directly by a user and
// not attached to any cosmetic group. A downscaled JPEG rendition is stored
// alongside the original under ThumbnailKey.
type UserPhoto struct {
	ID           string
	UserID       int64
	StorageKey   string
	ThumbnailKey string
	OriginalName string
	MimeType     string
	CreatedAt    time.Time
}

// GroupSummary is the pouch list view: one row per group with the key of
// its representative (earliest uploaded) photo.
type GroupSummary struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	OpenedAt     *time.Time
	ExpiredAt    *time.Time
	ThumbnailKey string
}

// GroupDetail is a group together with all of its photos, ordered by
// upload time ascending.
type GroupDetail struct {
	Group
	Photos []Photo
}

// GroupUpdate holds the user-editable group fields. Nil fields are left
// unchanged.
type GroupUpdate struct {
	Name      *string
	OpenedAt  *time.Time
	ExpiredAt *time.Time
}

// Candidate is one group considered as a possible match for an incoming
// photo, together with the storage keys of all its reference photos in
// upload order. Candidates are assembled per detection request and ordered
// by group creation time descending; that ordering decides ties between
// groups with exactly equal match scores.
type Candidate struct {
	GroupID     string
	StorageKeys []string
}
