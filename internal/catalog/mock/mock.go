// Package mock provides mock implementations of catalog interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viewlulu/pouch-backend/internal/catalog"
)

// MockUserRepository is a mock implementation of catalog.UserRepository.
type MockUserRepository struct {
	mu     sync.RWMutex
	users  map[string]*catalog.User
	nextID int64

	// Error injection
	CreateError     error
	GetByEmailError error
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[string]*catalog.User),
		nextID: 1,
	}
}

// Create inserts a new user.
func (m *MockUserRepository) Create(ctx context.Context, user *catalog.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return catalog.ErrDuplicateEmail
	}
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.Email] = &stored
	return nil
}

// GetByEmail returns the user with the given email.
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*catalog.User, error) {
	if m.GetByEmailError != nil {
		return nil, m.GetByEmailError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

// MockGroupRepository is a mock implementation of catalog.GroupRepository
// and catalog.CandidateSource.
type MockGroupRepository struct {
	mu     sync.RWMutex
	groups map[string]*catalog.Group
	photos map[string][]catalog.Photo // keyed by group id

	// Error injection
	CreateGroupError    error
	AddPhotoError       error
	ListGroupsError     error
	GetGroupError       error
	UpdateGroupError    error
	DeleteGroupError    error
	ListCandidatesError error
}

// NewMockGroupRepository creates a new mock group repository.
func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{
		groups: make(map[string]*catalog.Group),
		photos: make(map[string][]catalog.Photo),
	}
}

// CreateGroup inserts a new group.
func (m *MockGroupRepository) CreateGroup(ctx context.Context, group *catalog.Group) error {
	if m.CreateGroupError != nil {
		return m.CreateGroupError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now()
	}
	stored := *group
	m.groups[group.ID] = &stored
	return nil
}

// AddPhoto attaches a photo to a group.
func (m *MockGroupRepository) AddPhoto(ctx context.Context, photo *catalog.Photo) error {
	if m.AddPhotoError != nil {
		return m.AddPhotoError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[photo.GroupID]; !ok {
		return catalog.ErrNotFound
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now()
	}
	m.photos[photo.GroupID] = append(m.photos[photo.GroupID], *photo)
	return nil
}

// sortedGroups returns groups ordered by creation time descending, id as tiebreak.
func (m *MockGroupRepository) sortedGroups(userID int64) []*catalog.Group {
	var groups []*catalog.Group
	for _, g := range m.groups {
		if g.UserID == userID {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.After(groups[j].CreatedAt)
		}
		return groups[i].ID < groups[j].ID
	})
	return groups
}

// sortedPhotos returns a group's photos in upload order.
func (m *MockGroupRepository) sortedPhotos(groupID string) []catalog.Photo {
	photos := append([]catalog.Photo(nil), m.photos[groupID]...)
	sort.Slice(photos, func(i, j int) bool {
		if !photos[i].CreatedAt.Equal(photos[j].CreatedAt) {
			return photos[i].CreatedAt.Before(photos[j].CreatedAt)
		}
		return photos[i].StorageKey < photos[j].StorageKey
	})
	return photos
}

// ListGroups returns the user's groups, most recently created first.
func (m *MockGroupRepository) ListGroups(ctx context.Context, userID int64) ([]catalog.GroupSummary, error) {
	if m.ListGroupsError != nil {
		return nil, m.ListGroupsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	summaries := []catalog.GroupSummary{}
	for _, g := range m.sortedGroups(userID) {
		s := catalog.GroupSummary{
			ID:        g.ID,
			Name:      g.Name,
			CreatedAt: g.CreatedAt,
			OpenedAt:  g.OpenedAt,
			ExpiredAt: g.ExpiredAt,
		}
		if photos := m.sortedPhotos(g.ID); len(photos) > 0 {
			s.ThumbnailKey = photos[0].StorageKey
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// GetGroup returns one group with its photos.
func (m *MockGroupRepository) GetGroup(ctx context.Context, groupID string, userID int64) (*catalog.GroupDetail, error) {
	if m.GetGroupError != nil {
		return nil, m.GetGroupError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[groupID]
	if !ok || g.UserID != userID {
		return nil, catalog.ErrNotFound
	}
	return &catalog.GroupDetail{
		Group:  *g,
		Photos: m.sortedPhotos(groupID),
	}, nil
}

// UpdateGroup applies the non-nil fields of upd.
func (m *MockGroupRepository) UpdateGroup(ctx context.Context, groupID string, userID int64, upd catalog.GroupUpdate) (*catalog.Group, error) {
	if m.UpdateGroupError != nil {
		return nil, m.UpdateGroupError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok || g.UserID != userID {
		return nil, catalog.ErrNotFound
	}
	if upd.Name != nil {
		g.Name = *upd.Name
	}
	if upd.OpenedAt != nil {
		g.OpenedAt = upd.OpenedAt
	}
	if upd.ExpiredAt != nil {
		g.ExpiredAt = upd.ExpiredAt
	}
	copied := *g
	return &copied, nil
}

// GroupPhotoKeys returns the storage keys of all photos in a group.
func (m *MockGroupRepository) GroupPhotoKeys(ctx context.Context, groupID string, userID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[groupID]
	if !ok || g.UserID != userID {
		return nil, nil
	}
	var keys []string
	for _, p := range m.sortedPhotos(groupID) {
		keys = append(keys, p.StorageKey)
	}
	return keys, nil
}

// DeleteGroup removes a group and its photos.
func (m *MockGroupRepository) DeleteGroup(ctx context.Context, groupID string, userID int64) error {
	if m.DeleteGroupError != nil {
		return m.DeleteGroupError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok || g.UserID != userID {
		return catalog.ErrNotFound
	}
	delete(m.groups, groupID)
	delete(m.photos, groupID)
	return nil
}

// ListCandidates returns the detection comparison set for a user.
func (m *MockGroupRepository) ListCandidates(ctx context.Context, userID int64) ([]catalog.Candidate, error) {
	if m.ListCandidatesError != nil {
		return nil, m.ListCandidatesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	candidates := []catalog.Candidate{}
	for _, g := range m.sortedGroups(userID) {
		photos := m.sortedPhotos(g.ID)
		if len(photos) == 0 {
			continue
		}
		c := catalog.Candidate{GroupID: g.ID}
		for _, p := range photos {
			c.StorageKeys = append(c.StorageKeys, p.StorageKey)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// MockPhotoRepository is a mock implementation of catalog.PhotoRepository.
type MockPhotoRepository struct {
	mu     sync.RWMutex
	photos []catalog.UserPhoto

	// Error injection
	CreatePhotoError error
	ListPhotosError  error
}

// NewMockPhotoRepository creates a new mock photo repository.
func NewMockPhotoRepository() *MockPhotoRepository {
	return &MockPhotoRepository{}
}

// CreatePhoto inserts a new personal photo.
func (m *MockPhotoRepository) CreatePhoto(ctx context.Context, photo *catalog.UserPhoto) error {
	if m.CreatePhotoError != nil {
		return m.CreatePhotoError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now()
	}
	m.photos = append(m.photos, *photo)
	return nil
}

// ListPhotos returns the user's personal photos, newest first.
func (m *MockPhotoRepository) ListPhotos(ctx context.Context, userID int64) ([]catalog.UserPhoto, error) {
	if m.ListPhotosError != nil {
		return nil, m.ListPhotosError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	photos := []catalog.UserPhoto{}
	for _, p := range m.photos {
		if p.UserID == userID {
			photos = append(photos, p)
		}
	}
	sort.Slice(photos, func(i, j int) bool {
		if !photos[i].CreatedAt.Equal(photos[j].CreatedAt) {
			return photos[i].CreatedAt.After(photos[j].CreatedAt)
		}
		return photos[i].ID < photos[j].ID
	})
	return photos, nil
}
