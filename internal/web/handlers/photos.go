package handlers

import (
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/viewlulu/pouch-backend/internal/catalog"
	"github.com/viewlulu/pouch-backend/internal/config"
	"github.com/viewlulu/pouch-backend/internal/storage"
	"github.com/viewlulu/pouch-backend/internal/thumbnail"
	"github.com/viewlulu/pouch-backend/internal/web/middleware"
)

// PhotosHandler handles the personal photo endpoints. Personal photos live
// outside the cosmetics catalog and never feed the detection pipeline.
type PhotosHandler struct {
	photos  catalog.PhotoRepository
	store   storage.ObjectStore
	storage *config.StorageConfig
}

// NewPhotosHandler creates a new personal photos handler.
func NewPhotosHandler(photos catalog.PhotoRepository, store storage.ObjectStore, storageCfg *config.StorageConfig) *PhotosHandler {
	return &PhotosHandler{
		photos:  photos,
		store:   store,
		storage: storageCfg,
	}
}

type personalPhotoResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	CreatedAt    time.Time `json:"createdAt"`
	URL          string    `json:"url,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
}

// personalPhotoKey builds the blob key for one personal photo, keeping the
// original file extension.
func personalPhotoKey(userID int64, photoID, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("users/%d/photos/%s%s", userID, photoID, ext)
}

// personalThumbKey builds the blob key for the JPEG thumbnail of a photo.
func personalThumbKey(userID int64, photoID string) string {
	return fmt.Sprintf("users/%d/photos/%s_thumb.jpg", userID, photoID)
}

// Upload handles POST /photos. It accepts a single multipart photo, stores
// the original plus a downscaled thumbnail, and records the photo row.
func (h *PhotosHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["photo"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "photo is required")
		return
	}
	fh := files[0]

	data, err := readPhotoPart(fh)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read photo %s", sanitizeForLog(fh.Filename)))
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty photo upload")
		return
	}

	thumb, err := thumbnail.JPEG(data, thumbnail.DefaultSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "photo must be a decodable image")
		return
	}

	photo := &catalog.UserPhoto{
		ID:           uuid.NewString(),
		UserID:       identity.UserID,
		OriginalName: filepath.Base(fh.Filename),
		MimeType:     fh.Header.Get("Content-Type"),
	}
	photo.StorageKey = personalPhotoKey(identity.UserID, photo.ID, photo.OriginalName)
	photo.ThumbnailKey = personalThumbKey(identity.UserID, photo.ID)

	if err := h.store.PutObject(r.Context(), photo.StorageKey, data, photo.MimeType); err != nil {
		log.Printf("store photo %s failed: %v", photo.StorageKey, err)
		respondError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}
	if err := h.store.PutObject(r.Context(), photo.ThumbnailKey, thumb, "image/jpeg"); err != nil {
		log.Printf("store thumbnail %s failed: %v", photo.ThumbnailKey, err)
		respondError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	if err := h.photos.CreatePhoto(r.Context(), photo); err != nil {
		log.Printf("create photo row failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	respondJSON(w, http.StatusCreated, personalPhotoResponse{
		ID:           photo.ID,
		OriginalName: photo.OriginalName,
		MimeType:     photo.MimeType,
		CreatedAt:    photo.CreatedAt,
		URL:          h.storage.PublicURL(photo.StorageKey),
		ThumbnailURL: h.storage.PublicURL(photo.ThumbnailKey),
	})
}

// List handles GET /photos. Photos come back newest first.
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	photos, err := h.photos.ListPhotos(r.Context(), identity.UserID)
	if err != nil {
		log.Printf("list photos failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}

	out := make([]personalPhotoResponse, 0, len(photos))
	for _, p := range photos {
		out = append(out, personalPhotoResponse{
			ID:           p.ID,
			OriginalName: p.OriginalName,
			MimeType:     p.MimeType,
			CreatedAt:    p.CreatedAt,
			URL:          h.storage.PublicURL(p.StorageKey),
			ThumbnailURL: h.storage.PublicURL(p.ThumbnailKey),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
