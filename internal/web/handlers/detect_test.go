package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/viewlulu/pouch-backend/internal/catalog"
	"github.com/viewlulu/pouch-backend/internal/catalog/mock"
	"github.com/viewlulu/pouch-backend/internal/detect"
	"github.com/viewlulu/pouch-backend/internal/fingerprint"
	"github.com/viewlulu/pouch-backend/internal/storage"
)

// trackingStore counts GetObject calls so tests can assert that short-circuit
// paths never reach blob storage.
type trackingStore struct {
	*storage.MemoryStore
	gets atomic.Int64
}

func (s *trackingStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	s.gets.Add(1)
	return s.MemoryStore.GetObject(ctx, key)
}

func newTestDetectHandler(groups *mock.MockGroupRepository, store *trackingStore) *DetectHandler {
	fetcher := detect.NewFetcher(store, detect.DefaultConcurrency)
	resolver := detect.NewResolver(fetcher, fingerprint.DefaultHasher(), detect.DefaultPolicy())
	return NewDetectHandler(groups, resolver, time.Minute)
}

// seedCandidate registers a group with one reference photo made from pattern.
func seedCandidate(t *testing.T, groups *mock.MockGroupRepository, store *trackingStore, groupID string, pattern [64]bool, createdAt time.Time) {
	t.Helper()
	ctx := context.Background()
	err := groups.CreateGroup(ctx, &catalog.Group{
		ID:        groupID,
		UserID:    testIdentity().UserID,
		Name:      groupID,
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("seed group: %v", err)
	}
	key := "users/1/cosmetics/" + groupID + "/ref.png"
	if err := store.PutObject(ctx, key, patternPNG(t, pattern), "image/png"); err != nil {
		t.Fatalf("seed object: %v", err)
	}
	err = groups.AddPhoto(ctx, &catalog.Photo{
		ID:         groupID + "-ref",
		GroupID:    groupID,
		StorageKey: key,
		CreatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("seed photo: %v", err)
	}
}

// postDetect sends a detection request with the given photo bytes.
func postDetect(t *testing.T, h *DetectHandler, photo []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, nil, []filePart{{"photo", "capture.png", photo}})
	req := requestWithIdentity(t, http.MethodPost, "/api/v1/cosmetics/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Detect(rec, req)
	return rec
}

// assertJSONMessage checks the detect endpoint's error body shape.
func assertJSONMessage(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["message"] != expected {
		t.Errorf("expected message '%s', got '%s'", expected, result["message"])
	}
}

func TestDetectIdenticalPhotoMatches(t *testing.T) {
	groups := mock.NewMockGroupRepository()
	store := &trackingStore{MemoryStore: storage.NewMemoryStore()}
	seedCandidate(t, groups, store, "g-1", halfPattern(), time.Now())
	h := newTestDetectHandler(groups, store)

	rec := postDetect(t, h, patternPNG(t, halfPattern()))

	assertStatusCode(t, rec, http.StatusOK)
	var result detectResponse
	parseJSONResponse(t, rec, &result)
	if !result.Matched {
		t.Fatal("expected a match")
	}
	if result.DetectedID == nil || *result.DetectedID != "g-1" {
		t.Errorf("expected detectedId g-1, got %v", result.DetectedID)
	}
	if result.Score == nil || *result.Score != 0 {
		t.Errorf("expected score 0, got %v", result.Score)
	}
}

func TestDetectPicksClosestGroup(t *testing.T) {
	groups := mock.NewMockGroupRepository()
	store := &trackingStore{MemoryStore: storage.NewMemoryStore()}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedCandidate(t, groups, store, "g-far", shiftedPattern(12), base)
	seedCandidate(t, groups, store, "g-near", shiftedPattern(2), base.Add(time.Hour))
	h := newTestDetectHandler(groups, store)

	rec := postDetect(t, h, patternPNG(t, halfPattern()))

	assertStatusCode(t, rec, http.StatusOK)
	var result detectResponse
	parseJSONResponse(t, rec, &result)
	if !result.Matched || result.DetectedID == nil || *result.DetectedID != "g-near" {
		t.Fatalf("expected g-near to win, got %+v", result)
	}
	if result.Score == nil || *result.Score != 2 {
		t.Errorf("expected score 2, got %v", result.Score)
	}
}

func TestDetectAboveThresholdReportsNoMatch(t *testing.T) {
	groups := mock.NewMockGroupRepository()
	store := &trackingStore{MemoryStore: storage.NewMemoryStore()}
	seedCandidate(t, groups, store, "g-1", shiftedPattern(19), time.Now())
	h := newTestDetectHandler(groups, store)

	rec := postDetect(t, h, patternPNG(t, halfPattern()))

	assertStatusCode(t, rec, http.StatusOK)
	var result detectResponse
	parseJSONResponse(t, rec, &result)
	if result.Matched {
		t.Fatal("distance 19 exceeds the threshold, no match expected")
	}
	if result.DetectedID != nil {
		t.Errorf("expected null detectedId, got %v", *result.DetectedID)
	}
	if result.Score == nil || *result.Score != 19 {
		t.Errorf("expected best score 19 for observability, got %v", result.Score)
	}
}

func TestDetectNoCandidates(t *testing.T) {
	groups := mock.NewMockGroupRepository()
	store := &trackingStore{MemoryStore: storage.NewMemoryStore()}
	h := newTestDetectHandler(groups, store)

	rec := postDetect(t, h, patternPNG(t, halfPattern()))

	assertStatusCode(t, rec, http.StatusNotFound)
	assertJSONMessage(t, rec, "no cosmetics registered")
	if n := store.gets.Load(); n != 0 {
		t.Errorf("no blob fetches expected without candidates, got %d", n)
	}
}

func TestDetectBadUploads(t *testing.T) {
	groups := mock.NewMockGroupRepository()
	store := &trackingStore{MemoryStore: storage.NewMemoryStore()}
	seedCandidate(t, groups, store, "g-1", halfPattern(), time.Now())
	h := newTestDetectHandler(groups, store)

	t.Run("garbage bytes", func(t *testing.T) {
		rec := postDetect(t, h, []byte("definitely not an image"))
		assertStatusCode(t, rec, http.StatusBadRequest)
		assertJSONMessage(t, rec, "undecodable image")
	})

	t.Run("empty file", func(t *testing.T) {
		rec := postDetect(t, h, nil)
		assertStatusCode(t, rec, http.StatusBadRequest)
		assertJSONMessage(t, rec, "empty photo upload")
	})

	t.Run("missing field", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"other": "x"}, nil)
		req := requestWithIdentity(t, http.MethodPost, "/api/v1/cosmetics/detect", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.Detect(rec, req)

		assertStatusCode(t, rec, http.StatusBadRequest)
		assertJSONMessage(t, rec, "photo file is required")
	})

	// Undecodable uploads must be rejected before any blob fetch.
	if n := store.gets.Load(); n != 0 {
		t.Errorf("no blob fetches expected for rejected uploads, got %d", n)
	}
}

func TestDetectWithoutIdentity(t *testing.T) {
	groups := mock.NewMockGroupRepository()
	store := &trackingStore{MemoryStore: storage.NewMemoryStore()}
	h := newTestDetectHandler(groups, store)

	body, contentType := multipartBody(t, nil, []filePart{{"photo", "capture.png", patternPNG(t, halfPattern())}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cosmetics/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Detect(rec, req)

	assertStatusCode(t, rec, http.StatusUnauthorized)
}

func TestDetectTimeoutFailsRequest(t *testing.T) {
	groups := mock.NewMockGroupRepository()
	store := &trackingStore{MemoryStore: storage.NewMemoryStore()}
	seedCandidate(t, groups, store, "g-1", halfPattern(), time.Now())

	// A budget this small is spent before the fetch wave starts; whatever
	// evidence exists must not become a verdict.
	fetcher := detect.NewFetcher(store, detect.DefaultConcurrency)
	resolver := detect.NewResolver(fetcher, fingerprint.DefaultHasher(), detect.DefaultPolicy())
	h := NewDetectHandler(groups, resolver, time.Nanosecond)

	rec := postDetect(t, h, patternPNG(t, halfPattern()))

	assertStatusCode(t, rec, http.StatusInternalServerError)
	assertJSONMessage(t, rec, "detection timed out")
}

func TestDetectRepositoryFailure(t *testing.T) {
	groups := mock.NewMockGroupRepository()
	groups.ListCandidatesError = errors.New("connection refused")
	store := &trackingStore{MemoryStore: storage.NewMemoryStore()}
	h := newTestDetectHandler(groups, store)

	rec := postDetect(t, h, patternPNG(t, halfPattern()))

	assertStatusCode(t, rec, http.StatusInternalServerError)
	assertJSONMessage(t, rec, "failed to load catalog")
}
