package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/viewlulu/pouch-backend/internal/catalog"
	"github.com/viewlulu/pouch-backend/internal/config"
	"github.com/viewlulu/pouch-backend/internal/storage"
	"github.com/viewlulu/pouch-backend/internal/web/middleware"
)

// maxBulkPhotos is the most reference photos accepted in one group upload.
const maxBulkPhotos = 4

// CosmeticsHandler handles the pouch catalog endpoints.
type CosmeticsHandler struct {
	groups  catalog.GroupRepository
	store   storage.ObjectStore
	storage *config.StorageConfig
}

// NewCosmeticsHandler creates a new cosmetics handler.
func NewCosmeticsHandler(groups catalog.GroupRepository, store storage.ObjectStore, storageCfg *config.StorageConfig) *CosmeticsHandler {
	return &CosmeticsHandler{
		groups:  groups,
		store:   store,
		storage: storageCfg,
	}
}

type groupResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreatedAt    time.Time  `json:"createdAt"`
	OpenedAt     *time.Time `json:"openedAt"`
	ExpiredAt    *time.Time `json:"expiredAt"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
}

type photoResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	CreatedAt    time.Time `json:"createdAt"`
	URL          string    `json:"url,omitempty"`
}

type groupDetailResponse struct {
	groupResponse
	Photos []photoResponse `json:"photos"`
}

// storageKey builds the blob key for one reference photo. The original file
// extension is kept so the stored object stays recognizable.
func storageKey(userID int64, groupID, photoID, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("users/%d/cosmetics/%s/%s%s", userID, groupID, photoID, ext)
}

// readPhotoPart reads the bytes of one multipart photo.
func readPhotoPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Create handles POST /cosmetics/bulk. It accepts a group name and up to
// four reference photos in one multipart request.
func (h *CosmeticsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "at least one photo is required")
		return
	}
	if len(files) > maxBulkPhotos {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d photos per group", maxBulkPhotos))
		return
	}

	group := &catalog.Group{
		ID:     uuid.NewString(),
		UserID: identity.UserID,
		Name:   name,
	}
	if err := h.groups.CreateGroup(r.Context(), group); err != nil {
		log.Printf("create group failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create group")
		return
	}

	for _, fh := range files {
		data, err := readPhotoPart(fh)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read photo %s", sanitizeForLog(fh.Filename)))
			return
		}
		if len(data) == 0 {
			respondError(w, http.StatusBadRequest, "empty photo upload")
			return
		}

		photo := &catalog.Photo{
			ID:           uuid.NewString(),
			GroupID:      group.ID,
			OriginalName: filepath.Base(fh.Filename),
			MimeType:     fh.Header.Get("Content-Type"),
		}
		photo.StorageKey = storageKey(identity.UserID, group.ID, photo.ID, photo.OriginalName)

		if err := h.store.PutObject(r.Context(), photo.StorageKey, data, photo.MimeType); err != nil {
			log.Printf("store photo %s failed: %v", photo.StorageKey, err)
			respondError(w, http.StatusInternalServerError, "failed to store photo")
			return
		}
		if err := h.groups.AddPhoto(r.Context(), photo); err != nil {
			log.Printf("add photo row failed: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to store photo")
			return
		}
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":        group.ID,
		"name":      group.Name,
		"createdAt": group.CreatedAt,
	})
}

// List handles GET /cosmetics/me.
func (h *CosmeticsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summaries, err := h.groups.ListGroups(r.Context(), identity.UserID)
	if err != nil {
		log.Printf("list groups failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list cosmetics")
		return
	}

	out := make([]groupResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, groupResponse{
			ID:           s.ID,
			Name:         s.Name,
			CreatedAt:    s.CreatedAt,
			OpenedAt:     s.OpenedAt,
			ExpiredAt:    s.ExpiredAt,
			ThumbnailURL: h.storage.PublicURL(s.ThumbnailKey),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles GET /cosmetics/{id}.
func (h *CosmeticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groupID := chi.URLParam(r, "id")
	detail, err := h.groups.GetGroup(r.Context(), groupID, identity.UserID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "cosmetic not found")
			return
		}
		log.Printf("get group %s failed: %v", sanitizeForLog(groupID), err)
		respondError(w, http.StatusInternalServerError, "failed to load cosmetic")
		return
	}

	resp := groupDetailResponse{
		groupResponse: groupResponse{
			ID:        detail.ID,
			Name:      detail.Name,
			CreatedAt: detail.CreatedAt,
			OpenedAt:  detail.OpenedAt,
			ExpiredAt: detail.ExpiredAt,
		},
		Photos: make([]photoResponse, 0, len(detail.Photos)),
	}
	for _, p := range detail.Photos {
		resp.Photos = append(resp.Photos, photoResponse{
			ID:           p.ID,
			OriginalName: p.OriginalName,
			MimeType:     p.MimeType,
			CreatedAt:    p.CreatedAt,
			URL:          h.storage.PublicURL(p.StorageKey),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

type groupUpdateRequest struct {
	Name      *string    `json:"name"`
	OpenedAt  *time.Time `json:"openedAt"`
	ExpiredAt *time.Time `json:"expiredAt"`
}

// Update handles PATCH /cosmetics/{id}. Absent fields are left unchanged.
func (h *CosmeticsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req groupUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name != nil && *req.Name == "" {
		respondError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	groupID := chi.URLParam(r, "id")
	group, err := h.groups.UpdateGroup(r.Context(), groupID, identity.UserID, catalog.GroupUpdate{
		Name:      req.Name,
		OpenedAt:  req.OpenedAt,
		ExpiredAt: req.ExpiredAt,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "cosmetic not found")
			return
		}
		log.Printf("update group %s failed: %v", sanitizeForLog(groupID), err)
		respondError(w, http.StatusInternalServerError, "failed to update cosmetic")
		return
	}

	respondJSON(w, http.StatusOK, groupResponse{
		ID:        group.ID,
		Name:      group.Name,
		CreatedAt: group.CreatedAt,
		OpenedAt:  group.OpenedAt,
		ExpiredAt: group.ExpiredAt,
	})
}

// Delete handles DELETE /cosmetics/{id}. Blob objects are removed first so
// a failed blob delete leaves the rows intact and the delete retryable.
func (h *CosmeticsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groupID := chi.URLParam(r, "id")
	keys, err := h.groups.GroupPhotoKeys(r.Context(), groupID, identity.UserID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "cosmetic not found")
			return
		}
		log.Printf("collect photo keys for %s failed: %v", sanitizeForLog(groupID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete cosmetic")
		return
	}

	if err := h.store.DeleteObjects(r.Context(), keys); err != nil {
		log.Printf("delete objects for %s failed: %v", sanitizeForLog(groupID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete cosmetic")
		return
	}

	if err := h.groups.DeleteGroup(r.Context(), groupID, identity.UserID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "cosmetic not found")
			return
		}
		log.Printf("delete group %s failed: %v", sanitizeForLog(groupID), err)
		respondError(w, http.StatusInternalServerError, "failed to delete cosmetic")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"deleted": groupID,
		"photos":  len(keys),
	})
}
