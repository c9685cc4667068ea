package catalog

import "context"

// UserRepository provides access to registered accounts.
type UserRepository interface {
	// Create inserts a new user and fills in its ID and CreatedAt.
	// Returns ErrDuplicateEmail if the email is already registered.
	Create(ctx context.Context, user *User) error
	// GetByEmail returns the user with the given email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// GroupRepository provides access to cosmetic groups and their photos.
type GroupRepository interface {
	// CreateGroup inserts a new group and fills in its CreatedAt.
	CreateGroup(ctx context.Context, group *Group) error
	// AddPhoto attaches a reference photo to an existing group.
	AddPhoto(ctx context.Context, photo *Photo) error
	// ListGroups returns the user's groups, most recently created first.
	// A user with no groups gets an empty slice, not an error.
	ListGroups(ctx context.Context, userID int64) ([]GroupSummary, error)
	// GetGroup returns one group with its photos in upload order, or
	// ErrNotFound when the group does not exist or belongs to another user.
	GetGroup(ctx context.Context, groupID string, userID int64) (*GroupDetail, error)
	// UpdateGroup applies the non-nil fields of upd and returns the updated
	// group, or ErrNotFound.
	UpdateGroup(ctx context.Context, groupID string, userID int64, upd GroupUpdate) (*Group, error)
	// GroupPhotoKeys returns the storage keys of all photos in a group so
	// the caller can remove the blobs before deleting the rows.
	GroupPhotoKeys(ctx context.Context, groupID string, userID int64) ([]string, error)
	// DeleteGroup removes a group and its photo rows, or ErrNotFound.
	DeleteGroup(ctx context.Context, groupID string, userID int64) error
}

// PhotoRepository provides access to a user's standalone personal photos.
type PhotoRepository interface {
	// CreatePhoto inserts a new personal photo and fills in its CreatedAt.
	CreatePhoto(ctx context.Context, photo *UserPhoto) error
	// ListPhotos returns the user's personal photos, newest first. A user
	// with no photos gets an empty slice, not an error.
	ListPhotos(ctx context.Context, userID int64) ([]UserPhoto, error)
}

// CandidateSource is the read-only gateway the detection pipeline uses to
// assemble the comparison set for one request.
type CandidateSource interface {
	// ListCandidates returns every group of the user with the storage keys
	// of all its reference photos (upload order ascending), groups ordered
	// by creation time descending. A user with no groups gets an empty
	// slice. Storage access failures wrap ErrDependency.
	ListCandidates(ctx context.Context, userID int64) ([]Candidate, error)
}
